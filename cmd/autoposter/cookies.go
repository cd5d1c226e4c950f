package main

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/autoposter/internal/config"
	"github.com/nao1215/autoposter/internal/fetcher"
	applog "github.com/nao1215/autoposter/internal/log"
	"github.com/nao1215/autoposter/internal/session"
)

// ErrStillInterstitial is returned when a capture ends on the challenge page.
var ErrStillInterstitial = errors.New("the page still shows the anti-bot challenge, cookies were not saved")

// NewCookiesCmd creates the cookies command.
func NewCookiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Manage the catalog session cookies",
		Long: `The catalog protects its pages with an anti-bot challenge. Cookies from a
browser session that passed the challenge let plain HTTP requests through.

capture opens a visible browser so the challenge can be solved by hand,
then stores the session cookies. show lists what is stored.`,
	}

	cmd.PersistentFlags().String("cookie-file", "",
		"Cookie store path (default: cookies.json in the data directory)")

	cmd.AddCommand(newCookiesCaptureCmd())
	cmd.AddCommand(newCookiesShowCmd())
	return cmd
}

func cookiePath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("cookie-file")
	if err != nil {
		return "", err
	}
	cfg := config.NewConfig()
	cfg.CookieFile = path
	return cfg.CookiePath(), nil
}

func newCookiesCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Solve the anti-bot challenge in a browser and store its cookies",
		Args:  cobra.NoArgs,
		RunE:  runCookiesCapture,
	}
	cmd.Flags().String("base-url", config.DefaultBaseURL, "Catalog root URL")
	cmd.Flags().String("chrome-path", "", "Chrome executable (default: search PATH)")
	return cmd
}

func runCookiesCapture(cmd *cobra.Command, _ []string) error {
	path, err := cookiePath(cmd)
	if err != nil {
		return err
	}
	baseURL, err := cmd.Flags().GetString("base-url")
	if err != nil {
		return err
	}
	chromePath, err := cmd.Flags().GetString("chrome-path")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	store, err := session.Open(path, session.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	detector := fetcher.NewDetector(config.DefaultInterstitialPhrases())
	browser, err := fetcher.NewBrowserFetcher(ctx, baseURL,
		fetcher.WithBrowserLogger(logger),
		fetcher.WithBrowserSession(store),
		fetcher.WithBrowserDetector(detector),
		fetcher.WithBrowserWaitPolicy(fetcher.WaitPolicy{Attempts: 1}),
		fetcher.WithBrowserTimeout(time.Minute),
		fetcher.WithHeadless(false),
		fetcher.WithChromePath(chromePath),
	)
	if err != nil {
		return err
	}
	defer browser.Close()

	if _, err := browser.Fetch(ctx, baseURL); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Solve the challenge in the browser window if one is shown.")
	fmt.Fprint(out, "Press Enter once the catalog page is visible...")
	if _, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n'); err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}

	title, err := browser.Title(ctx)
	if err != nil {
		return err
	}
	if detector.IsInterstitial(title) {
		return ErrStillInterstitial
	}

	cookies, err := browser.Cookies(ctx)
	if err != nil {
		return err
	}
	store.Update(cookies)
	if err := store.Save(); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	fmt.Fprintf(out, "\nSaved %d cookies to %s\n", store.Len(), store.Path())
	return nil
}

func newCookiesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List stored cookies with their values redacted",
		Args:  cobra.NoArgs,
		RunE:  runCookiesShow,
	}
}

func runCookiesShow(cmd *cobra.Command, _ []string) error {
	path, err := cookiePath(cmd)
	if err != nil {
		return err
	}
	store, err := session.Open(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if store.Len() == 0 {
		fmt.Fprintf(out, "No cookies stored in %s\n", path)
		return nil
	}

	now := time.Now()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Name", "Domain", "Path", "Expires", "Value"})
	for _, c := range store.Cookies() {
		expires := "session"
		switch {
		case c.Expired(now):
			expires = "expired"
		case c.Expires > 0:
			expires = time.Unix(c.Expires, 0).Format(time.DateTime)
		}
		t.AppendRow(table.Row{c.Name, c.Domain, c.Path, expires, applog.MaskValue})
	}
	t.Render()
	return nil
}
