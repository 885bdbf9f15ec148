// Command epubifyer builds an EPUB from web pages and local HTML files.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	epubifyer "github.com/The-Ducktor/epubifyer"
)

type cliConfig struct {
	output       string
	title        string
	author       string
	language     string
	cssFile      string
	cover        string
	genCover     bool
	maxWidth     int
	quality      int
	grayscale    bool
	optimize     bool
	allowPrivate bool
	verbose      bool
}

func main() {
	cfg := &cliConfig{}

	root := &cobra.Command{
		Use:   "epubifyer [flags] <url|file.html>...",
		Short: "Build an EPUB from web pages and local HTML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, args)
		},
		SilenceUsage: true,
	}

	f := root.Flags()
	f.StringVarP(&cfg.output, "output", "o", "book.epub", "output file path")
	f.StringVar(&cfg.title, "title", "", "book title (default: first chapter title)")
	f.StringVar(&cfg.author, "author", "", "book author")
	f.StringVar(&cfg.language, "language", "en", "book language code")
	f.StringVar(&cfg.cssFile, "css", "", "stylesheet file applied to all chapters")
	f.StringVar(&cfg.cover, "cover", "", "cover image: file path, URL or data URI")
	f.BoolVar(&cfg.genCover, "generate-cover", false, "generate a pattern cover from the title")
	f.BoolVar(&cfg.optimize, "optimize-images", false, "re-encode images for e-readers")
	f.IntVar(&cfg.maxWidth, "max-width", 1200, "maximum image width when optimizing")
	f.IntVar(&cfg.quality, "quality", 80, "JPEG quality when optimizing")
	f.BoolVar(&cfg.grayscale, "grayscale", false, "convert images to grayscale when optimizing")
	f.BoolVar(&cfg.allowPrivate, "allow-private", false, "allow fetching from private/loopback addresses")
	f.BoolVarP(&cfg.verbose, "verbose", "v", false, "debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *cliConfig, args []string) error {
	level := hclog.Info
	if cfg.verbose {
		level = hclog.Debug
	}
	log := hclog.New(&hclog.LoggerOptions{
		Name:  "epubifyer",
		Level: level,
	})

	book := epubifyer.New(epubifyer.Metadata{
		Title:    cfg.title,
		Creator:  cfg.author,
		Language: cfg.language,
	})
	book.SetLogger(log)
	book.SetAllowPrivateHosts(cfg.allowPrivate)
	if cfg.optimize {
		book.SetImageOptions(epubifyer.ImageOptions{
			MaxWidth:  cfg.maxWidth,
			Quality:   cfg.quality,
			Grayscale: cfg.grayscale,
		})
	}

	if cfg.cssFile != "" {
		css, err := os.ReadFile(cfg.cssFile)
		if err != nil {
			return fmt.Errorf("reading stylesheet: %w", err)
		}
		if err := book.AddCSS("style", string(css)); err != nil {
			return err
		}
	}

	firstTitle := ""
	for _, arg := range args {
		title, err := addSource(book, arg)
		if err != nil {
			log.Error("skipping source", "source", arg, "error", err)
			continue
		}
		log.Info("added chapter", "source", arg, "title", title)
		if firstTitle == "" {
			firstTitle = title
		}
	}
	if len(book.Spine()) == 0 {
		return fmt.Errorf("no chapters could be added")
	}

	if cfg.title == "" && firstTitle != "" {
		book.SetMetadata(epubifyer.Metadata{Title: firstTitle})
	}

	switch {
	case cfg.cover != "":
		if _, err := book.AddCover(cfg.cover); err != nil {
			return fmt.Errorf("adding cover: %w", err)
		}
	case cfg.genCover:
		if _, err := book.GenerateCover(book.Metadata().Title); err != nil {
			return fmt.Errorf("generating cover: %w", err)
		}
	}

	if err := book.Save(cfg.output); err != nil {
		return fmt.Errorf("writing %s: %w", cfg.output, err)
	}
	log.Info("wrote epub", "path", cfg.output, "chapters", len(book.Spine()))
	return nil
}

// addSource adds one CLI argument as a chapter: an existing .html/.htm
// file is read directly, anything else is treated as a URL.
func addSource(book *epubifyer.Epub, arg string) (string, error) {
	if isHTMLFile(arg) {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", err
		}
		title := titleFromFilename(arg)
		_, err = book.AddChapter(title, epubifyer.HTML(data), "")
		return title, err
	}

	id, err := book.AddChapterFromURL("", arg)
	if err != nil {
		return "", err
	}
	for _, np := range book.TOC() {
		if np.ID == id {
			return np.Label, nil
		}
	}
	return id, nil
}

func isHTMLFile(arg string) bool {
	ext := strings.ToLower(filepath.Ext(arg))
	if ext != ".html" && ext != ".htm" {
		return false
	}
	_, err := os.Stat(arg)
	return err == nil
}

func titleFromFilename(p string) string {
	base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}
