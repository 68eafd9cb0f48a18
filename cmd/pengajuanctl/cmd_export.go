package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	exportFormat  string
	exportOut     string
	exportUser    string
	exportPass    string
	exportFilters = map[string]*string{}
)

// exportCmd downloads the Rekap Data export
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the Rekap Data export",
	Long: `Logs in as the admin and downloads /v1/exports.

Formats csv and xlsx produce the recap table, json and ndjson the full snapshot
that /v1/imports accepts. Filters match the Rekap Data list:
  pengajuanctl export --format xlsx --status review --period 30days`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "csv, xlsx, json or ndjson")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file or directory (default: server filename in the current directory)")
	exportCmd.Flags().StringVar(&exportUser, "username", envOr("PENGAJUAN_ADMIN_USER", "admin"), "Admin username (or set PENGAJUAN_ADMIN_USER)")
	exportCmd.Flags().StringVar(&exportPass, "password", os.Getenv("PENGAJUAN_ADMIN_PASSWORD"), "Admin password (or set PENGAJUAN_ADMIN_PASSWORD)")

	for _, name := range []string{"search", "status", "period", "staff", "supervisor", "content_type", "media_type"} {
		v := new(string)
		exportFilters[name] = v
		exportCmd.Flags().StringVar(v, name, "", "Filter by "+name)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmdContext(cmd), timeout)
	defer cancel()

	if exportPass == "" {
		return fmt.Errorf("admin password is required (--password or PENGAJUAN_ADMIN_PASSWORD)")
	}

	c := newClient()
	if _, err := c.Login(ctx, exportUser, exportPass); err != nil {
		return err
	}

	query := url.Values{}
	for name, v := range exportFilters {
		if *v != "" {
			query.Set(name, *v)
		}
	}

	tmp, err := os.CreateTemp(exportDir(), ".export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	filename, err := c.Export(ctx, tmp, exportFormat, query)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	dest := exportDest(filename)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	log.Debug().Str("file", dest).Msg("Export written")
	fmt.Fprintln(cmd.OutOrStdout(), dest)
	return nil
}

func exportDir() string {
	if exportOut == "" {
		return "."
	}
	if info, err := os.Stat(exportOut); err == nil && info.IsDir() {
		return exportOut
	}
	return filepath.Dir(exportOut)
}

// exportDest is --out when it names a file, otherwise the server filename inside it
func exportDest(filename string) string {
	if filename == "" {
		filename = "rekap-data-detail." + exportFormat
	}
	if exportOut == "" {
		return filename
	}
	if info, err := os.Stat(exportOut); err == nil && info.IsDir() {
		return filepath.Join(exportOut, filename)
	}
	return exportOut
}
