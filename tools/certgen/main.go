// Package main writes a development CA and a server certificate for the
// stub backend into a directory (./certs by default).
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/atinyakov/ReinsDesk/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("certgen", pflag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.StringSlice("host", []string{"localhost", "127.0.0.1"}, "server host names and IPs")
	validity := fs.Duration("validity", 365*24*time.Hour, "server certificate lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := certgen.WriteBundle(*dir, *hosts, *validity); err != nil {
		return err
	}
	fmt.Fprintf(out, "Certificates written to %s\n", *dir)
	fmt.Fprintf(out, "  server: reinsdesk-server --tls-cert %[1]s/%[2]s --tls-key %[1]s/%[3]s\n", *dir, certgen.ServerCertFile, certgen.ServerKeyFile)
	fmt.Fprintf(out, "  client: reinsdesk --ca %s/%s --api-url https://localhost:3000/api ...\n", *dir, certgen.CACertFile)
	return nil
}
