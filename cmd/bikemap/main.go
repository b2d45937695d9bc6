package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/bikemap/internal/checkbox"
	"github.com/joeblew999/bikemap/internal/layers"
	"github.com/joeblew999/bikemap/internal/overpass"
	"github.com/joeblew999/bikemap/internal/server"
	"github.com/joeblew999/bikemap/internal/service"
)

// Options defines all CLI flags and env vars for the bikemap server.
// Flags: --host, --port, --data-dir, --feed, --data-url, --mapbox-token, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_MAPBOX_TOKEN, ...
type Options struct {
	Host        string `doc:"Host to bind to" default:"0.0.0.0"`
	Port        int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir     string `doc:"Directory for feeds and the DuckDB file" default:".data"`
	Feed        string `doc:"Feed file in <data-dir>/feeds loaded at startup" default:"export.geojson"`
	DataURL     string `doc:"GeoJSON URL the browser loads (defaults to the feed endpoint)"`
	MapboxToken string `doc:"Mapbox access token for the base map and directions"`
	StyleURL    string `doc:"Base map style URL" default:"mapbox://styles/mapbox/light-v11"`
	SessionTTL  string `doc:"Idle time before a widget session expires" default:"30m"`
	TemplateDir string `doc:"Reload page templates from this directory (development)"`
	LogLevel    string `doc:"Log level: debug, info, warn, error" default:"info"`
}

func setupLogging(opts *Options) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newServer(opts *Options) *server.Server {
	setupLogging(opts)
	ttl, err := time.ParseDuration(opts.SessionTTL)
	if err != nil {
		slog.Warn("invalid session ttl, using default", "value", opts.SessionTTL)
		ttl = service.DefaultSessionTTL
	}
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		DataDir:     opts.DataDir,
		Feed:        opts.Feed,
		DataURL:     opts.DataURL,
		MapboxToken: opts.MapboxToken,
		StyleURL:    opts.StyleURL,
		SessionTTL:  ttl,
		TemplateDir: opts.TemplateDir,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server

		hooks.OnStart(func() {
			srv := newServer(opts)
			defer srv.Close()
			srv.Start()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("bikemap server starting...\n")
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server error", "err", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
		})
	})

	cli.Root().Use = "bikemap"
	cli.Root().Short = "Charlotte bicycle facility map"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
			useYAML, _ := cmd.Flags().GetBool("yaml")
			printOut(srv.OpenAPI(), useYAML)
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// filters subcommand: print the map filters for a set of toggles
	filtersCmd := &cobra.Command{
		Use:   "filters",
		Short: "Print the map filters with the given checkboxes unchecked",
		Example: "  bikemap filters --off signed-routes --off cycle-paths\n" +
			"  bikemap filters --off layers --yaml",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			setupLogging(opts)
			off, _ := cmd.Flags().GetStringSlice("off")
			useYAML, _ := cmd.Flags().GetBool("yaml")

			w, err := layers.New(nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			for _, id := range off {
				if !w.Click(checkbox.ID(id), false) {
					fmt.Fprintf(os.Stderr, "Error: unknown checkbox %q\n", id)
					os.Exit(1)
				}
			}
			f := w.Filters()
			printOut(map[string]any{
				"filters": map[string]any{
					"routes":     f.Routes.Wire(),
					"lanesLeft":  f.LanesLeft.Wire(),
					"lanesRight": f.LanesRight.Wire(),
					"paths":      f.Paths.Wire(),
				},
				"visibility": w.Visibility(),
			}, useYAML)
		}),
	}
	filtersCmd.Flags().StringSlice("off", nil, "Checkbox IDs to uncheck")
	filtersCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(filtersCmd)

	// fetch subcommand: rebuild the feed from OpenStreetMap
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download cycling facilities from the Overpass API into the feeds directory",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			setupLogging(opts)
			area, _ := cmd.Flags().GetInt64("area")
			endpoint, _ := cmd.Flags().GetString("overpass-url")

			client := overpass.NewClient()
			if endpoint != "" {
				client.URL = endpoint
			}
			refresh := service.NewRefreshService(service.NewFeedService(opts.DataDir), client)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			info, err := refresh.Refresh(ctx, service.RefreshOptions{AreaID: area, Output: opts.Feed},
				func(p int, status string) { fmt.Printf("[%3d%%] %s\n", p, status) })
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching feed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wrote %s (%s, %d features)\n", info.Name, info.Size, info.Features)
		}),
	}
	fetchCmd.Flags().Int64("area", overpass.CharlotteArea, "Overpass area id")
	fetchCmd.Flags().String("overpass-url", "", "Overpass interpreter URL")
	cli.Root().AddCommand(fetchCmd)

	cli.Run()
}

func printOut(v any, useYAML bool) {
	var output []byte
	var err error
	if useYAML {
		output, err = yaml.Marshal(v)
	} else {
		output, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}
