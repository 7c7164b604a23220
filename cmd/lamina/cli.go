package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gg"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/lamina/internal/config"
	"github.com/hpungsan/lamina/internal/errors"
	"github.com/hpungsan/lamina/internal/ops"
	"github.com/hpungsan/lamina/internal/record"
	"github.com/hpungsan/lamina/internal/replay"
	"github.com/hpungsan/lamina/internal/slide"
	"github.com/hpungsan/lamina/internal/web"
)

const (
	maxSlideInput      = 4 << 20
	maxRecordInput     = 64 << 20
	maxBackgroundInput = 32 << 20
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "lamina",
		Usage:   "Viewport-independent slide interaction capture",
		Version: Version,
		Commands: []*cli.Command{
			slideCmd(db, cfg),
			recordCmd(db, cfg),
			replayCmd(db, cfg),
			exportCmd(db, cfg),
			importCmd(db, cfg),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// slideCmd creates the slide command group.
func slideCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "slide",
		Usage: "Store and inspect slides",
		Subcommands: []*cli.Command{
			{
				Name:  "put",
				Usage: "Create or replace a slide (reads slide JSON from --file or stdin)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Slide JSON file ('-' for stdin)"},
					&cli.StringFlag{Name: "id", Usage: "Slide id (overrides the id in the JSON)"},
				},
				Action: func(c *cli.Context) error {
					var s slide.Slide
					if err := readJSONInput(c, maxSlideInput, &s); err != nil {
						return outputError(err)
					}
					if id := c.String("id"); id != "" {
						s.ID = id
					}

					output, err := ops.SaveSlide(c.Context, db, cfg, ops.SaveSlideInput{Slide: s})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "get",
				Usage:     "Fetch a slide by id",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.LoadSlide(c.Context, db, cfg, ops.LoadSlideInput{ID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "list",
				Usage: "List slides",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Filter by project id"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListSlides(c.Context, db, cfg, ops.ListSlidesInput{ProjectID: c.String("project")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}

// recordCmd creates the record command group.
func recordCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	slideFlag := func(required bool) *cli.StringSliceFlag {
		return &cli.StringSliceFlag{Name: "slide", Aliases: []string{"s"}, Required: required, Usage: "Slide id (repeatable)"}
	}

	return &cli.Command{
		Name:  "record",
		Usage: "Submit and query interaction records",
		Subcommands: []*cli.Command{
			{
				Name:  "submit",
				Usage: "Submit an interaction record (reads record JSON from --file or stdin)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Record JSON file ('-' for stdin)"},
					&cli.StringFlag{Name: "slide", Aliases: []string{"s"}, Usage: "Slide id (overrides slide_id in the JSON)"},
					&cli.StringFlag{Name: "alias", Aliases: []string{"a"}, Usage: "Participant alias (overrides the JSON)"},
				},
				Action: func(c *cli.Context) error {
					var rec record.Record
					if err := readJSONInput(c, maxRecordInput, &rec); err != nil {
						return outputError(err)
					}
					if s := c.String("slide"); s != "" {
						rec.SlideID = s
					}
					if a := c.String("alias"); a != "" {
						rec.ParticipantAlias = a
					}

					output, err := ops.SubmitRecord(c.Context, db, cfg, ops.SubmitRecordInput{Record: rec})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "capture",
				Usage: "Capture a record from a raw input event log (reads JSON from --file or stdin)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Event log JSON file ('-' for stdin)"},
					&cli.StringFlag{Name: "slide", Aliases: []string{"s"}, Usage: "Slide id (overrides slide_id in the JSON)"},
					&cli.StringFlag{Name: "alias", Aliases: []string{"a"}, Usage: "Participant alias (overrides the JSON)"},
					&cli.BoolFlag{Name: "preview", Usage: "Assemble the record without saving it"},
				},
				Action: func(c *cli.Context) error {
					var input ops.CaptureInput
					if err := readJSONInput(c, maxRecordInput, &input); err != nil {
						return outputError(err)
					}
					if s := c.String("slide"); s != "" {
						input.SlideID = s
					}
					if a := c.String("alias"); a != "" {
						input.ParticipantAlias = a
					}
					if c.Bool("preview") {
						input.Preview = true
					}

					output, err := ops.CaptureEvents(c.Context, db, cfg, input)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "get",
				Usage:     "Fetch a record by id",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.GetRecord(c.Context, db, ops.GetRecordInput{ID: c.Args().First()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "list",
				Usage: "List records, newest first",
				Flags: []cli.Flag{
					slideFlag(false),
					&cli.StringFlag{Name: "alias", Aliases: []string{"a"}, Usage: "Filter by participant alias"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
					&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListRecords(c.Context, db, ops.ListRecordsInput{
						SlideIDs: c.StringSlice("slide"),
						Alias:    c.String("alias"),
						Limit:    c.Int("limit"),
						Offset:   c.Int("offset"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "latest",
				Usage: "Get a participant's most recent record on a slide",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "slide", Aliases: []string{"s"}, Required: true, Usage: "Slide id"},
					&cli.StringFlag{Name: "alias", Aliases: []string{"a"}, Required: true, Usage: "Participant alias"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.LatestRecord(c.Context, db, ops.LatestRecordInput{
						SlideID: c.String("slide"),
						Alias:   c.String("alias"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "results",
				Usage: "Latest record per participant and slide",
				Flags: []cli.Flag{slideFlag(true)},
				Action: func(c *cli.Context) error {
					output, err := ops.ResultsByParticipant(c.Context, db, ops.ResultsInput{SlideIDs: c.StringSlice("slide")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete every record of the given slides",
				Flags: []cli.Flag{slideFlag(true)},
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteRecords(c.Context, db, ops.DeleteRecordsInput{SlideIDs: c.StringSlice("slide")})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}

// replayCmd creates the replay command.
func replayCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Render a record as a PNG for a viewport",
		ArgsUsage: "<record-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output PNG path (default: <record-id>.png)"},
			&cli.IntFlag{Name: "width", Usage: "Viewport width in pixels (default: canvas width)"},
			&cli.IntFlag{Name: "height", Usage: "Viewport height in pixels (default: canvas height)"},
			&cli.StringFlag{Name: "background", Aliases: []string{"b"}, Usage: "Slide background image (PNG, JPEG or WebP)"},
			&cli.StringFlag{Name: "matte", Usage: "Letterbox color, e.g. #000000 (default: transparent)"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()
			input := ops.ReplayInput{
				RecordID: id,
				Width:    c.Int("width"),
				Height:   c.Int("height"),
			}

			if path := c.String("background"); path != "" {
				bg, err := loadBackground(path)
				if err != nil {
					return outputError(err)
				}
				input.Background = bg
			}
			if m := c.String("matte"); m != "" {
				matte, err := parseMatte(m)
				if err != nil {
					return outputError(err)
				}
				input.Matte = matte
			}

			output, err := ops.ReplayRecord(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			out := c.String("out")
			if out == "" {
				out = ops.SanitizeForFilename(output.RecordID) + ".png"
			}
			if err := os.WriteFile(out, output.PNG, 0o644); err != nil {
				return outputError(errors.NewInternal(fmt.Errorf("write replay: %w", err)))
			}

			return outputJSON(c, struct {
				Path string `json:"path"`
				*ops.ReplayOutput
			}{Path: out, ReplayOutput: output})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export records to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.lamina/exports/<slide|all>-<timestamp>.jsonl)"},
			&cli.StringSliceFlag{Name: "slide", Aliases: []string{"s"}, Usage: "Only records of these slides (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ExportRecords(c.Context, db, cfg, ops.ExportInput{
				Path:     c.String("path"),
				SlideIDs: c.StringSlice("slide"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import records from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|skip|rename"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ImportRecords(c.Context, db, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	defaults := cfg
	if defaults == nil {
		defaults = config.DefaultConfig()
	}
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the results viewer and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: defaults.WebBind, Usage: "Listen address"},
			&cli.IntFlag{Name: "port", Value: defaults.WebPort, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(db, cfg, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(err)
			}
			fmt.Fprintf(c.App.ErrWriter, "Lamina running at http://%s\n", srv.Addr)
			if err := web.Run(srv); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON writes result to the app's stdout as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if lErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", lErr.Code, lErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin, failing past limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := readLimited(os.Stdin, limit)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("input exceeds %d bytes", limit)
	}
	return data, nil
}

// readJSONInput decodes the --file flag's JSON (or stdin) into v.
func readJSONInput(c *cli.Context, limit int64, v any) error {
	var (
		data []byte
		err  error
	)
	switch path := c.String("file"); path {
	case "", "-":
		if path == "" && !stdinHasData() {
			return errors.NewInvalidRequest("JSON must be given with --file or piped via stdin")
		}
		var text string
		text, err = readStdin(limit)
		data = []byte(text)
	default:
		var f *os.File
		if f, err = os.Open(path); err != nil {
			if os.IsNotExist(err) {
				return errors.NewFileNotFound(path)
			}
			return errors.NewInternal(err)
		}
		defer f.Close()
		data, err = readLimited(f, limit)
	}
	if err != nil {
		return errors.NewInvalidRequest(err.Error())
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.NewInvalidRequest("JSON input is empty")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON: %v", err))
	}
	return nil
}

// loadBackground decodes a background image file.
func loadBackground(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	defer f.Close()

	img, err := replay.DecodeBackground(io.LimitReader(f, maxBackgroundInput))
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return img, nil
}

// parseMatte parses a #RRGGBB or #RRGGBBAA letterbox color.
func parseMatte(s string) (color.Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("matte %q must be #RRGGBB or #RRGGBBAA", s))
	}
	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("matte %q is not a hex color", s))
		}
	}
	return gg.Hex(hex).Color(), nil
}
