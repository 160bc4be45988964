package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dendrite-ai/dendrite/pkg/engine"
	"github.com/dendrite-ai/dendrite/pkg/semantic"
	"github.com/dendrite-ai/dendrite/pkg/service"
	"github.com/dendrite-ai/dendrite/pkg/tools"
)

var (
	sseFlag      bool
	sseAddrFlag  string
	httpAddrFlag string
	mockFlag     bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the dendrite MCP server",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := engine.FromViper(viper.GetViper())
			if err != nil {
				return err
			}

			eng := engine.New(cfg, newEmbedder())

			srv := server.NewMCPServer(
				"dendrite",
				"1.0.0",
				server.WithLogging(),
				server.WithToolCapabilities(true),
			)

			tools.NewRegistry(eng).RegisterAll(srv)

			addr := cfg.HTTPAddr
			if httpAddrFlag != "" {
				addr = httpAddrFlag
			}

			if addr != "" {
				sidecar := service.NewHTTPServer(eng)

				go func() {
					if err := sidecar.Run(addr); err != nil {
						log.Error("http sidecar failed", "error", err)
					}
				}()
			}

			if sseFlag {
				log.Info("serving over SSE", "addr", sseAddrFlag)
				return server.NewSSEServer(srv).Start(sseAddrFlag)
			}

			return server.ServeStdio(srv)
		},
	}
)

/*
newEmbedder selects the embedding backend. OpenAI is used whenever a key is
present so that semantic scores reflect real embeddings; the deterministic
lexical embedder keeps the engine fully functional offline.
*/
func newEmbedder() semantic.Embedder {
	if mockFlag {
		log.Info("using deterministic lexical embedder")
		return semantic.NewMockEmbedder()
	}

	if openaiAPIKey != "" {
		return semantic.NewOpenAIEmbedder(openaiAPIKey)
	}

	log.Warn("no OpenAI API key configured, falling back to lexical embedder")
	return semantic.NewMockEmbedder()
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&sseFlag, "sse", false, "Serve MCP over SSE instead of stdio")
	serveCmd.Flags().StringVar(&sseAddrFlag, "sse-addr", "0.0.0.0:3210", "Address for the SSE listener")
	serveCmd.Flags().StringVar(&httpAddrFlag, "http-addr", "", "Address for the HTTP sidecar (overrides config)")
	serveCmd.Flags().BoolVar(&mockFlag, "mock-embedder", false, "Force the deterministic lexical embedder")
}

var longServe = `
Serve the dendrite reasoning graph over MCP.

By default the server speaks MCP over stdio, which is how most assistant
clients attach. An HTTP sidecar exposes health, statistics and export
endpoints next to it.

Examples:
  # Serve over stdio with the default config
  dendrite serve

  # Serve over SSE for clients that attach over the network
  dendrite serve --sse --sse-addr 0.0.0.0:3210

  # Run fully offline with deterministic embeddings
  dendrite serve --mock-embedder
`
