package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	appDocument "github.com/ndrwsmyth/oxychat/internal/application/document"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/embedding"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/storage"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/vector"
	"github.com/spf13/cobra"
)

var (
	docsQuery string
	docsLimit int
	noIndex   bool
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage meeting documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	RunE:  runDocumentsList,
}

var documentsIngestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Ingest documents from a file",
	Long: `Ingest documents from a JSON, HTML, Markdown or text file.

A JSON file holds one document object or an array of documents, each
with doc_id, title, date, content and source fields. Any other file is
stored as a single document titled after the file name.
HTML content is converted to plain text.

Examples:
  oxyctl documents ingest meetings.json
  oxyctl documents ingest 2025-01-06_standup.html
  cat meeting.json | oxyctl documents ingest -`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsIngest,
}

var documentsReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every document into the vector index",
	RunE:  runDocumentsReindex,
}

func init() {
	documentsListCmd.Flags().StringVarP(&docsQuery, "query", "q", "", "filter by title")
	documentsListCmd.Flags().IntVarP(&docsLimit, "limit", "n", 50, "max results")
	documentsIngestCmd.Flags().BoolVar(&noIndex, "no-index", false, "store documents without embedding them")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsIngestCmd)
	documentsCmd.AddCommand(documentsReindexCmd)
}

// documentService 构建文档服务，withIndex 为 false 时只写存储
func documentService(withIndex bool) (*appDocument.Service, func(), error) {
	conn, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	repo := storage.NewDocumentRepository(conn)

	ragCfg := cfg.RAG
	if !withIndex || !ragCfg.Enabled {
		ragCfg.Enabled = false
		svc := appDocument.NewService(repo, nil, &ragCfg)
		return svc, svc.Stop, nil
	}

	client, closeClient, err := vector.NewQdrantClient(&ragCfg)
	if err != nil {
		return nil, nil, err
	}
	index := vector.NewDocumentIndex(client, embedding.NewClientFromConfig(&ragCfg), &ragCfg)
	svc := appDocument.NewService(repo, index, &ragCfg)
	return svc, func() {
		svc.Stop()
		closeClient()
	}, nil
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := documentService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := svc.List(cmd.Context(), docsQuery, docsLimit, 0)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOC ID\tDATE\tSOURCE\tTITLE")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.DocID, d.Date, d.Source, d.Title)
	}
	return w.Flush()
}

func runDocumentsIngest(cmd *cobra.Command, args []string) error {
	inputs, err := readDocuments(cmd, args[0])
	if err != nil {
		return err
	}

	svc, cleanup, err := documentService(!noIndex)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	failed := 0
	for _, in := range inputs {
		if in.Source == "" {
			in.Source = "cli"
		}
		result, err := svc.Ingest(cmd.Context(), in)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "skip %q: %v\n", in.Title, err)
			continue
		}
		if result.Chunks >= 0 {
			fmt.Fprintf(out, "ingested %s (%d chunks)\n", result.Document.DocID, result.Chunks)
		} else {
			fmt.Fprintf(out, "ingested %s (not indexed)\n", result.Document.DocID)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(inputs))
	}
	return nil
}

func runDocumentsReindex(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := documentService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := svc.Reindex(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents (%d chunks), %d failed\n",
		result.Indexed, result.Chunks, result.Failed)
	return nil
}

// readDocuments 从文件或标准输入读取文档，标准输入只接受 JSON
func readDocuments(cmd *cobra.Command, src string) ([]appDocument.IngestInput, error) {
	if src != "-" {
		return appDocument.ParseFile(src)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return appDocument.ParseDocuments(data)
}
