package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/spf13/cobra"
)

var publishFlags struct {
	user      string
	text      string
	title     string
	images    []string
	platforms []string
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a post immediately and print the aggregate result",
	RunE:  runPublish,
}

func init() {
	f := publishCmd.Flags()
	f.StringVar(&publishFlags.user, "user", "", "user id owning the integrations")
	f.StringVar(&publishFlags.text, "text", "", "post text")
	f.StringVar(&publishFlags.title, "title", "", "optional post title")
	f.StringArrayVar(&publishFlags.images, "image", nil, "path of a file to attach (repeatable)")
	f.StringArrayVar(&publishFlags.platforms, "platform", nil, "restrict to a platform (repeatable)")
	_ = publishCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	a, err := build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	content := &models.PostContent{Text: publishFlags.text, Title: publishFlags.title}
	for _, path := range publishFlags.images {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		service.AddAttachment(content, data, filepath.Base(path), "")
	}

	agg, err := a.publish.PublishAll(cmd.Context(), publishFlags.user, "", content, publishFlags.platforms...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(agg); err != nil {
		return err
	}
	if agg.Status != models.StatusAllSuccess {
		return fmt.Errorf("publish finished with status %s", agg.Status)
	}
	return nil
}
