package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pengajuan-konten-api/internal/attachment"
	"github.com/pengajuan-konten-api/internal/client"
	"github.com/pengajuan-konten-api/internal/intake"
	"github.com/pengajuan-konten-api/internal/models"
	"github.com/spf13/cobra"
)

var (
	submitMultipart      bool
	submitAttach         []string
	submitLinks          []string
	submitIdempotencyKey string
	submitMaxFileSize    int64
)

// submitCmd posts a pengajuan draft read from a JSON file
var submitCmd = &cobra.Command{
	Use:   "submit <draft.json>",
	Short: "Submit a pengajuan draft",
	Long: `Reads a pengajuan draft in the form's JSON shape and posts it to /api/pengajuan.

Local files can be attached to the top-level slots:
  pengajuanctl submit draft.json --attach suratPermohonan=./surat.pdf --attach dokumenPendukung=./foto.jpg

or linked from external storage:
  pengajuanctl submit draft.json --link uploadedBuktiMengetahui=https://drive.example.go.id/bukti

With --multipart the draft is sent as multipart/form-data with real file parts,
otherwise files are inlined as data URLs.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

// credentialsCmd reserves a fresh noComtab and PIN
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Generate an unused noComtab and PIN",
	Args:  cobra.NoArgs,
	RunE:  runCredentials,
}

func init() {
	submitCmd.Flags().BoolVar(&submitMultipart, "multipart", false, "Send as multipart/form-data")
	submitCmd.Flags().StringArrayVar(&submitAttach, "attach", nil, "Attach a local file as slot=path (repeatable)")
	submitCmd.Flags().StringArrayVar(&submitLinks, "link", nil, "Link an external file as slot=url (repeatable)")
	submitCmd.Flags().StringVar(&submitIdempotencyKey, "idempotency-key", "", "Idempotency-Key header")
	submitCmd.Flags().Int64Var(&submitMaxFileSize, "max-file-size", 10<<20, "Refuse local files larger than this many bytes")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmdContext(cmd), timeout)
	defer cancel()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	sub, err := intake.DecodeJSON(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to read draft %s: %w", args[0], err)
	}

	for _, arg := range submitAttach {
		if err := attachFile(sub, arg); err != nil {
			return err
		}
	}
	for _, arg := range submitLinks {
		if err := attachLink(sub, arg); err != nil {
			return err
		}
	}

	log.Debug().
		Str("server", serverURL).
		Bool("multipart", submitMultipart).
		Int("items", len(sub.ContentItems)).
		Msg("Submitting draft")

	receipt, err := newClient().Submit(ctx, sub, client.SubmitOptions{
		Multipart:      submitMultipart,
		IdempotencyKey: submitIdempotencyKey,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if receipt.Replayed {
		fmt.Fprintln(out, "Pengajuan sudah tersimpan sebelumnya.")
	}
	fmt.Fprintf(out, "ID:        %d\n", receipt.ID)
	fmt.Fprintf(out, "No Comtab: %s\n", receipt.NoComtab)
	fmt.Fprintf(out, "PIN:       %s\n", receipt.Pin)
	fmt.Fprintf(out, "Tahap:     %s\n", receipt.WorkflowStage)
	return nil
}

// attachFile loads "slot=path" into the named slot of sub
func attachFile(sub *models.Submission, arg string) error {
	slot, path, ok := strings.Cut(arg, "=")
	if !ok || slot == "" || path == "" {
		return fmt.Errorf("invalid --attach %q, expected slot=path", arg)
	}
	a, err := client.LoadFile(path, submitMaxFileSize)
	if err != nil {
		return fmt.Errorf("failed to attach %s: %w", path, err)
	}
	return fillSlot(sub, slot, func(in *attachment.Input) error {
		in.SetFile(a)
		return nil
	})
}

// attachLink puts the external URL of "slot=url" into the named slot of sub
func attachLink(sub *models.Submission, arg string) error {
	slot, link, ok := strings.Cut(arg, "=")
	if !ok || slot == "" || link == "" {
		return fmt.Errorf("invalid --link %q, expected slot=url", arg)
	}
	return fillSlot(sub, slot, func(in *attachment.Input) error {
		if !in.SetLink(link) {
			return fmt.Errorf("invalid --link %q: %s", arg, in.Error())
		}
		return nil
	})
}

// fillSlot drives an attachment input bound to the named slot of sub.
// dokumenPendukung collects every accepted value.
func fillSlot(sub *models.Submission, slot string, fill func(*attachment.Input) error) error {
	var target **models.Attachment
	switch slot {
	case "uploadedBuktiMengetahui":
		target = &sub.UploadedBuktiMengetahui
	case "suratPermohonan":
		target = &sub.SuratPermohonan
	case "proposalKegiatan":
		target = &sub.ProposalKegiatan
	case "dokumenPendukung":
		in := attachment.NewInput(nil)
		in.OnChange = func(a *models.Attachment) {
			if a != nil {
				sub.DokumenPendukung = append(sub.DokumenPendukung, a)
			}
		}
		return fill(in)
	default:
		return fmt.Errorf("unknown attachment slot %q", slot)
	}

	in := attachment.NewInput(*target)
	in.OnChange = func(a *models.Attachment) { *target = a }
	return fill(in)
}

func runCredentials(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmdContext(cmd), timeout)
	defer cancel()

	creds, err := newClient().Credentials(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "No Comtab: %s\nPIN:       %s\n", creds.NoComtab, creds.Pin)
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
