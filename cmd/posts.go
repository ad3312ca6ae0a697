// Package cmd — posts command.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/postpress/core"
	"github.com/gaurav-prasanna/postpress/crawl"
)

var flagPostsJSON bool

var postsCmd = &cobra.Command{
	Use:   "posts <publication>",
	Short: "List a publication's posts and their ids",
	Long: `Posts discovers a publication and prints every post with the id that
export's --posts and --manual flags accept.

Examples:
  postpress posts fieldnotes
  postpress posts https://fieldnotes.substack.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPosts,
}

func init() {
	rootCmd.AddCommand(postsCmd)
	postsCmd.Flags().BoolVar(&flagPostsJSON, "json", false, "Print the listing as JSON")
}

func runPosts(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	listing, err := crawl.DiscoverPublication(ctx, args[0], newFetcher())
	if err != nil {
		return fmt.Errorf("discovering publication: %w", err)
	}

	out := cmd.OutOrStdout()
	if flagPostsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	pub := listing.Publication
	fmt.Fprintf(out, "%s by %s (%s, %d posts from %s)\n\n", pub.Title, orUnknown(pub.Author), pub.URL, len(listing.Posts), listing.Source)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PUBLISHED\tTITLE\tID")
	for _, p := range listing.Posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", core.ParsePublishedAt(p.PublishedAt), p.Title, p.ID)
	}
	return tw.Flush()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown author"
	}
	return s
}
