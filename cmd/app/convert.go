package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/dysedit/internal/convert"
)

// convertFile converts SOURCE and writes the result to DESTINATION, or to
// stdout when no destination is given.
func convertFile(_ context.Context, cmd *cli.Command) error {
	src := cmd.Args().Get(0)
	if src == "" {
		return errors.New("no input source has been specified")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("convert: read %s: %w", src, err)
	}

	to, err := targetFormat(cmd.String("to"), src)
	if err != nil {
		return err
	}
	out := convertText(string(data), to)

	dst := cmd.Args().Get(1)
	if dst == "" {
		_, err = fmt.Fprintln(os.Stdout, out)
		return err
	}
	if err := os.WriteFile(dst, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("convert: write %s: %w", dst, err)
	}
	return nil
}

func targetFormat(flag, src string) (string, error) {
	switch strings.ToLower(flag) {
	case "html":
		return "html", nil
	case "markdown", "md":
		return "markdown", nil
	case "":
		switch strings.ToLower(filepath.Ext(src)) {
		case ".md", ".markdown", ".txt":
			return "html", nil
		default:
			return "markdown", nil
		}
	}
	return "", fmt.Errorf("convert: unknown output format %q", flag)
}

func convertText(in, to string) string {
	if to == "html" {
		return convert.ToHTML(convert.CleanAsterisks(in))
	}
	return convert.ToMarkdown(in)
}
