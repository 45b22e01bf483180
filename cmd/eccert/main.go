// Command eccert is a small CLI demonstrating the ecert library: create,
// sign, lock/unlock, strip, inspect, and verify certificates against a
// directory-backed store.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	ecert "github.com/erayd/go-ecert"
	"github.com/erayd/go-ecert/internal/diskctx"
)

var (
	storeDir string
	verbose  bool
)

// resolveStoreDir applies a fixed precedence: --store flag >
// ECCERT_STORE env > "./eccert-data".
func resolveStoreDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("ECCERT_STORE"); env != "" {
		return env
	}
	return "./eccert-data"
}

func newLogger() logr.Logger {
	level := 0
	if verbose {
		level = 1
	}
	log := funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
		} else {
			fmt.Fprintln(os.Stderr, args)
		}
	}, funcr.Options{Verbosity: level})
	return log
}

func openStore(cmd *cobra.Command) (*diskctx.Store, error) {
	dir := resolveStoreDir(storeDir)
	s, err := diskctx.New(dir, newLogger())
	if err != nil {
		return nil, err
	}
	s.SetValidator(func(ctx ecert.Context, cert *ecert.Certificate, r *ecert.Record) error {
		return nil
	})
	return s, nil
}

func main() {
	root := &cobra.Command{
		Use:   "eccert",
		Short: "Inspect and manage ecert certificates",
	}
	root.PersistentFlags().StringVar(&storeDir, "store", "", "certificate store directory (default: $ECCERT_STORE or ./eccert-data)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(
		newCreateCmd(),
		newSignCmd(),
		newLockCmd(),
		newUnlockCmd(),
		newStripCmd(),
		newInspectCmd(),
		newVerifyCmd(),
		newListCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newCreateCmd() *cobra.Command {
	var validityDays int
	var attrList string
	var trusted bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new certificate and add it to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}

			validUntil := int64(0)
			if validityDays > 0 {
				validUntil = time.Now().AddDate(0, 0, validityDays).Unix()
			}

			cert, err := ecert.Create(0, validUntil)
			if err != nil {
				return fmt.Errorf("create: %w", err)
			}

			attrs, err := ParseAttrs(attrList)
			if err != nil {
				return err
			}
			for _, a := range attrs {
				r := cert.Records().CreateBuf("_subject", a.Key, len(a.Value), 0)
				copy(r.Data(), a.Value)
			}

			if trusted {
				cert.Flags |= ecert.FlagTrusted
			}

			if err := s.Put(cert); err != nil {
				return err
			}

			id := cert.ID()
			fmt.Printf("Created certificate %x\n", id)
			return nil
		},
	}
	cmd.Flags().IntVar(&validityDays, "validity", 365, "validity period in days (0 = never expires)")
	cmd.Flags().StringVar(&attrList, "attr", "", "comma-separated key=value subject attributes")
	cmd.Flags().BoolVar(&trusted, "trusted", false, "mark this certificate as a trust anchor")
	return cmd
}

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <child-id> <signer-id>",
		Short: "Sign one stored certificate with another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}

			childID, err := parseID(args[0])
			if err != nil {
				return err
			}
			signerID, err := parseID(args[1])
			if err != nil {
				return err
			}

			child, ok := s.Lookup(childID)
			if !ok {
				return fmt.Errorf("child certificate %s not found", args[0])
			}
			signer, ok := s.Lookup(signerID)
			if !ok {
				return fmt.Errorf("signer certificate %s not found", args[1])
			}

			if err := ecert.Sign(child, signer); err != nil {
				return fmt.Errorf("sign: %w", err)
			}
			return s.Put(child)
		},
	}
	return cmd
}

func newLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock <id> <password>",
		Short: "Lock a stored certificate's secret key with a password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleLock(cmd, args[0], args[1], ecert.Lock)
		},
	}
	return cmd
}

func newUnlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock <id> <password>",
		Short: "Unlock a stored certificate's secret key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleLock(cmd, args[0], args[1], ecert.Unlock)
		},
	}
	return cmd
}

func toggleLock(cmd *cobra.Command, idArg, password string, op func(*ecert.Certificate, string) error) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	id, err := parseID(idArg)
	if err != nil {
		return err
	}
	cert, ok := s.Lookup(id)
	if !ok {
		return fmt.Errorf("certificate %s not found", idArg)
	}
	if err := op(cert, password); err != nil {
		return err
	}
	return s.Put(cert)
}

func newStripCmd() *cobra.Command {
	var secret, record, sign bool

	cmd := &cobra.Command{
		Use:   "strip <id>",
		Short: "Strip material from a stored certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cert, ok := s.Lookup(id)
			if !ok {
				return fmt.Errorf("certificate %s not found", args[0])
			}

			var what ecert.StripFlag
			if secret {
				what |= ecert.StripSecret
			}
			if record {
				what |= ecert.StripRecord
			}
			if sign {
				what |= ecert.StripSign
			}
			ecert.Strip(cert, what)
			return s.Put(cert)
		},
	}
	cmd.Flags().BoolVar(&secret, "secret", false, "remove sk and salt records")
	cmd.Flags().BoolVar(&record, "record", false, "remove NOSIGN records other than sk, salt and signature")
	cmd.Flags().BoolVar(&sign, "sign", false, "remove signer_id and signature records")
	return cmd
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <id>",
		Short: "Print a stored certificate's records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cert, ok := s.Lookup(id)
			if !ok {
				return fmt.Errorf("certificate %s not found", args[0])
			}

			fmt.Printf("ID:           %x\n", cert.ID())
			fmt.Printf("Version:      %d\n", cert.Version)
			fmt.Printf("Flags:        %#x\n", cert.Flags)
			fmt.Printf("Valid from:   %s\n", time.Unix(cert.ValidFrom, 0).Format(time.RFC3339))
			fmt.Printf("Valid until:  %s\n", time.Unix(cert.ValidUntil, 0).Format(time.RFC3339))
			for _, r := range cert.Records().Records() {
				kind := "record"
				if r.Flags&ecert.FlagSection != 0 {
					kind = "section"
				}
				fmt.Printf("  [%s] %s (%d bytes, flags=%#x)\n", kind, r.Key, len(r.Data()), r.Flags)
			}
			return nil
		},
	}
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Run the full validation pipeline against a stored certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cert, ok := s.Lookup(id)
			if !ok {
				return fmt.Errorf("certificate %s not found", args[0])
			}

			flags := ecert.CheckChain | ecert.CheckRequire
			if role != "" {
				flags |= ecert.CheckRole
			}
			if err := ecert.Check(s, cert, flags); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Println("OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "any non-empty value also runs the role/grant check over all $_grant and $_role records (the value itself is not looked up)")
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List certificates known to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			entries, err := s.List()
			if err != nil {
				return err
			}
			for _, e := range entries {
				trust := ""
				if e.Trusted {
					trust = " (trusted)"
				}
				fmt.Printf("%s%s\n", e.ID, trust)
			}
			return nil
		},
	}
	return cmd
}

func parseID(s string) ([32]byte, error) {
	var id [32]byte
	decoded, err := hex.DecodeString(s)
	if err != nil || len(decoded) != len(id) {
		return id, fmt.Errorf("invalid certificate id %q", s)
	}
	copy(id[:], decoded)
	return id, nil
}
