package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/imagerender"
	"github.com/local/pdfdesk/internal/packager"
	"github.com/local/pdfdesk/internal/pdfengine"
)

func outFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Value:   ".",
		Usage:   "Output file, or directory to write the default file name into",
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Concatenate selected pages of several PDFs into merged.pdf",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			outFlag(),
			&cli.StringSliceFlag{
				Name:    "pages",
				Aliases: []string{"p"},
				Usage:   "Page selection per file in argument order, e.g. 1-3,7 (default all)",
			},
		},
		Action: func(c *cli.Context) error {
			docs, err := loadDocuments(c, 0)
			if err != nil {
				return err
			}
			selections := c.StringSlice("pages")
			inputs := make([]pdfengine.MergeInput, len(docs))
			for i, d := range docs {
				spec := ""
				if i < len(selections) {
					spec = selections[i]
				}
				pages, err := selectedPages(d, spec)
				if err != nil {
					return err
				}
				inputs[i] = pdfengine.MergeInput{ID: d.ID, Name: d.Name, Data: d.Bytes(), Selected: pages}
			}
			out, skipped, err := pdfengine.New(pdfengine.NewPDFCPU()).Merge(c.Context, inputs, progressPrinter(c))
			if err != nil {
				return err
			}
			printSkipped(skipped)
			return writeDownload(c, packager.Merged(out))
		},
	}
}

func splitCommand() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "Extract page ranges of one PDF into separate files",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			outFlag(),
			&cli.StringFlag{
				Name:    "ranges",
				Aliases: []string{"r"},
				Usage:   "Comma separated ranges, e.g. 1-3,4-6,7",
			},
			&cli.IntFlag{
				Name:  "every",
				Usage: "Split into chunks of N pages instead of explicit ranges",
			},
			&cli.BoolFlag{
				Name:  "merge",
				Usage: "Concatenate all ranges into one document",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("split takes exactly one file")
			}
			docs, err := loadDocuments(c, 1)
			if err != nil {
				return err
			}
			d := docs[0]
			var ranges []document.PageRange
			if n := c.Int("every"); n > 0 {
				ranges = document.FixedRanges(document.ClampChunk(n, d.PageCount), d.PageCount)
			} else {
				ranges, err = document.ParseRanges(c.String("ranges"), d.PageCount)
				if err != nil {
					return err
				}
			}
			in := pdfengine.SplitInput{ID: d.ID, Name: d.Name, Data: d.Bytes(), PageCount: d.PageCount}
			res, err := pdfengine.New(pdfengine.NewPDFCPU()).Split(c.Context, in, ranges, pdfengine.SplitOptions{MergeRanges: c.Bool("merge")}, progressPrinter(c))
			if err != nil {
				return err
			}
			printSkipped(res.Skipped)
			dl, err := packager.Split(d.Name, res)
			if err != nil {
				return err
			}
			return writeDownload(c, dl)
		},
	}
}

func imagesCommand() *cli.Command {
	return &cli.Command{
		Name:      "images",
		Usage:     "Render pages of one or more PDFs to images",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			outFlag(),
			&cli.StringFlag{Name: "ranges", Aliases: []string{"r"}, Usage: "Pages to export from every file (default all)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "png", Usage: "png, jpeg or webp"},
			&cli.IntFlag{Name: "dpi", Value: imagerender.DefaultDPI, Usage: "Render resolution"},
			&cli.IntFlag{Name: "quality", Value: imagerender.DefaultQuality, Usage: "Quality 1-100 for lossy output"},
			&cli.BoolFlag{Name: "lossy", Usage: "Allow lossy PNG and WebP output"},
			&cli.BoolFlag{Name: "gray", Usage: "Render in grayscale"},
		},
		Action: func(c *cli.Context) error {
			format, err := imagerender.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			docs, err := loadDocuments(c, 0)
			if err != nil {
				return err
			}
			settings := imagerender.ExportSettings{
				Format:   format,
				DPI:      c.Int("dpi"),
				Quality:  c.Int("quality"),
				Lossless: !c.Bool("lossy"),
				Color:    imagerender.ColorRGB,
			}
			if c.Bool("gray") {
				settings.Color = imagerender.ColorGray
			}

			inputs := make([]imagerender.ExportInput, len(docs))
			names := make([]string, len(docs))
			for i, d := range docs {
				ranges, err := document.ParseRanges(c.String("ranges"), d.PageCount)
				if err != nil {
					return err
				}
				for _, r := range ranges {
					if issue := r.Validate(d.PageCount); issue != document.IssueNone {
						fmt.Fprintf(os.Stderr, "%s %s %s: %s\n", yellow("skipped"), d.Name, r, issue.Message(d.PageCount))
					}
				}
				inputs[i] = imagerender.ExportInput{ID: d.ID, Name: d.Name, Data: d.Bytes(), PageCount: d.PageCount, Ranges: ranges}
				names[i] = d.Name
			}

			handles := imagerender.NewHandleCache(nil)
			defer func() {
				for _, d := range docs {
					handles.Release(d.ID)
				}
			}()
			pages, err := imagerender.NewExporter(handles).Export(c.Context, inputs, settings, progressPrinter(c))
			if err != nil {
				return err
			}
			dl, err := packager.Images(pages, names, format)
			if err != nil {
				return err
			}
			return writeDownload(c, dl)
		},
	}
}

func img2pdfCommand() *cli.Command {
	return &cli.Command{
		Name:      "img2pdf",
		Usage:     "Place PNG, JPEG or WebP images on PDF pages, one per page",
		ArgsUsage: "IMAGE...",
		Flags: []cli.Flag{
			outFlag(),
			&cli.StringFlag{Name: "page-size", Value: "a4", Usage: "a4, letter or fit"},
			&cli.StringFlag{Name: "orientation", Value: "portrait", Usage: "portrait or landscape"},
			&cli.StringFlag{Name: "margin", Value: "small", Usage: "none, small or large"},
			&cli.IntSliceFlag{Name: "rotate", Usage: "Clockwise rotation per image in argument order (0, 90, 180, 270)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return errors.New("no images given")
			}
			opts, err := pdfengine.ParseImageOptions(c.String("page-size"), c.String("orientation"), c.String("margin"))
			if err != nil {
				return err
			}
			rotations := c.IntSlice("rotate")
			images := make([]pdfengine.ImageInput, 0, c.NArg())
			for i, p := range c.Args().Slice() {
				data, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				img := pdfengine.ImageInput{Name: filepath.Base(p), Data: data}
				if i < len(rotations) {
					img.Rotation = rotations[i]
				}
				images = append(images, img)
			}
			out, err := pdfengine.New(pdfengine.NewPDFCPU()).ImagesToPDF(c.Context, images, opts, progressPrinter(c))
			if err != nil {
				return err
			}
			return writeDownload(c, packager.ImagesToPDF(out))
		},
	}
}

func pagesCommand() *cli.Command {
	return &cli.Command{
		Name:      "pages",
		Usage:     "Print page counts and check a range selection against each file",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ranges", Aliases: []string{"r"}, Usage: "Ranges to validate, e.g. 1-3,9-12"},
		},
		Action: func(c *cli.Context) error {
			docs, err := loadDocuments(c, 0)
			if err != nil {
				return err
			}
			spec := c.String("ranges")
			for _, d := range docs {
				fmt.Printf("%s\t%d pages\n", bold(d.Name), d.PageCount)
				if spec == "" {
					continue
				}
				ranges, err := document.ParseRanges(spec, d.PageCount)
				if err != nil {
					return err
				}
				for _, r := range ranges {
					if issue := r.Validate(d.PageCount); issue != document.IssueNone {
						fmt.Printf("  %s\t%s\n", r, yellow(issue.Message(d.PageCount)))
						continue
					}
					fmt.Printf("  %s\t%s\n", r, green(fmt.Sprintf("%d pages", r.Len())))
				}
			}
			return nil
		},
	}
}

// loadDocuments reads the command arguments into a collection. Any file
// that fails to load aborts the command.
func loadDocuments(c *cli.Context, limit int) ([]*document.Document, error) {
	if c.NArg() == 0 {
		return nil, errors.New("no files given")
	}
	uploads := make([]document.Upload, 0, c.NArg())
	for _, p := range c.Args().Slice() {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, document.Upload{Name: filepath.Base(p), Data: data})
	}
	col := document.NewCollection(pdfengine.NewPDFCPU(), nil, limit)
	res := col.Load(c.Context, uploads)
	if len(res.Failed) > 0 {
		errs := make([]error, len(res.Failed))
		for i, f := range res.Failed {
			errs[i] = f.Err
		}
		return nil, errors.Join(errs...)
	}
	return col.List(), nil
}

func selectedPages(d *document.Document, spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		return d.SelectedPages(), nil
	}
	ranges, err := document.ParseRanges(spec, d.PageCount)
	if err != nil {
		return nil, err
	}
	d.DeselectAll()
	for _, r := range ranges {
		if issue := r.Validate(d.PageCount); issue != document.IssueNone {
			fmt.Fprintf(os.Stderr, "%s %s %s: %s\n", yellow("ignored"), d.Name, r, issue.Message(d.PageCount))
			continue
		}
		force := true
		d.TogglePages(r.Pages(), &force)
	}
	return d.SelectedPages(), nil
}

func progressPrinter(c *cli.Context) pdfengine.ProgressFunc {
	if !c.Bool("verbose") {
		return nil
	}
	return func(p pdfengine.Progress) {
		fmt.Fprintf(os.Stderr, "\r%d/%d %ss", p.Done, p.Total, p.Unit)
		if p.Done == p.Total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func printSkipped(skipped []pdfengine.Skipped) {
	for _, s := range skipped {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", yellow("skipped"), s.Label, s.Reason)
	}
}

// writeDownload writes dl to --out. An existing directory, or a path ending
// in a separator, receives the download under its own name.
func writeDownload(c *cli.Context, dl *packager.Download) error {
	dest := c.String("out")
	if fi, err := os.Stat(dest); (err == nil && fi.IsDir()) || strings.HasSuffix(dest, string(os.PathSeparator)) {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return err
		}
		dest = filepath.Join(dest, dl.Name)
	}
	if err := os.WriteFile(dest, dl.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	fmt.Printf("%s %s (%d file(s), %d bytes)\n", green("wrote"), dest, dl.Files, len(dl.Data))
	return nil
}
