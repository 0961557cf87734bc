package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/xeptore/zpotify/config"
	"github.com/xeptore/zpotify/constants"
	"github.com/xeptore/zpotify/log"
	"github.com/xeptore/zpotify/spotify"
	"github.com/xeptore/zpotify/spotify/respot"
	"github.com/xeptore/zpotify/spotify/types"
)

func main() {
	logger := log.NewDefault()

	//nolint:exhaustruct
	app := &cli.Command{
		Name:    "zpotify",
		Version: constants.Version,
		Metadata: map[string]any{
			"compiled_at": constants.CompileTime,
		},
		Suggest:                    true,
		Usage:                      "Spotify Music Downloader",
		EnableShellCompletion:      true,
		ShellCompletionCommandName: "shell-completion",
		AllowExtFlags:              false,
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Config file path",
				Required: false,
			},
		},
		Commands: []*cli.Command{
			//nolint:exhaustruct
			{
				Name:   "login",
				Usage:  "Login to Spotify",
				Action: runLogin,
			},
			//nolint:exhaustruct
			{
				Name:      "download",
				Usage:     "Download tracks, albums, playlists, artists, episodes or shows by link",
				ArgsUsage: "<link>...",
				Action:    runDownload,
			},
			//nolint:exhaustruct
			{
				Name:   "playlists",
				Usage:  "Download all of your playlists",
				Action: runPlaylists,
			},
			//nolint:exhaustruct
			{
				Name:   "liked",
				Usage:  "Download your liked songs",
				Action: runLiked,
			},
			//nolint:exhaustruct
			{
				Name:   "liked-artists",
				Usage:  "Download all songs of every artist you follow",
				Action: runLikedArtists,
			},
			//nolint:exhaustruct
			{
				Name:      "search",
				Usage:     "Search the catalog and download selected results",
				ArgsUsage: "<query>...",
				Action:    runSearch,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Trace().Msg("Application was canceled")
			os.Exit(1)
		}

		var exitCode exitCodeError
		if errors.As(err, &exitCode) {
			os.Exit(int(exitCode))
		}

		logger.Error().Err(err).Msg("Application exited with error")
		os.Exit(10)
	}
}

type exitCodeError int

func (e exitCodeError) Error() string {
	return "error with exit code: " + strconv.Itoa(int(e))
}

func loadConfig(cmd *cli.Command) (*config.Config, zerolog.Logger, error) {
	logger := log.NewDefault()

	if err := godotenv.Load(); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, logger, fmt.Errorf("load .env file: %v", err)
		}
		logger.Info().Msg(".env file was not found")
	} else {
		logger.Debug().Msg(".env file was loaded")
	}

	conf, err := config.Load(cmd.String("config"))
	if nil != err {
		return nil, logger, fmt.Errorf("load config: %v", err)
	}

	logger = log.FromConfig(conf.Log)

	logger.Debug().Dict("config", conf.ToDict()).Msg("Config loaded")

	return conf, logger, nil
}

func newClient(conf *config.Config) (*spotify.Client, error) {
	connector := respot.NewConnector(conf.Spotify.HelperBin)

	client, err := spotify.NewClient(conf.Spotify, connector)
	if nil != err {
		return nil, fmt.Errorf("create spotify client: %v", err)
	}

	return client, nil
}

// ensureLogin authenticates silently with stored credentials, falling
// back to interactive username/password prompts until a login succeeds.
func ensureLogin(ctx context.Context, logger zerolog.Logger, client *spotify.Client) error {
	ok, err := client.Login(ctx, logger, "", "")
	if nil != err {
		return fmt.Errorf("login to spotify: %w", err)
	}

	for !ok {
		var username string
		prompt := &survey.Input{Message: "Username:"} //nolint:exhaustruct
		if err := survey.AskOne(prompt, &username, survey.WithValidator(survey.Required)); nil != err {
			return fmt.Errorf("prompt for username: %w", err)
		}

		var password string
		passwordPrompt := &survey.Password{Message: "Password:"} //nolint:exhaustruct
		if err := survey.AskOne(passwordPrompt, &password, survey.WithValidator(survey.Required)); nil != err {
			return fmt.Errorf("prompt for password: %w", err)
		}

		ok, err = client.Login(ctx, logger, username, password)
		if nil != err {
			return fmt.Errorf("login to spotify: %w", err)
		}
		if !ok {
			logger.Error().Msg("Login failed, check your credentials and try again")
		}
	}

	return nil
}

func runLogin(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conf, logger, err := loadConfig(cmd)
	if nil != err {
		return err
	}

	client, err := newClient(conf)
	if nil != err {
		return err
	}
	defer func() {
		if err := client.Close(); nil != err {
			logger.Error().Err(err).Msg("Failed to close spotify client")
		}
	}()

	if err := ensureLogin(ctx, logger, client); nil != err {
		return err
	}
	logger.Info().Msg("Logged in successfully")

	return nil
}

func runDownload(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	links := cmd.Args().Slice()
	if len(links) == 0 {
		return errors.New("at least one link argument is required")
	}

	conf, logger, err := loadConfig(cmd)
	if nil != err {
		return err
	}

	client, err := newClient(conf)
	if nil != err {
		return err
	}
	defer func() {
		if err := client.Close(); nil != err {
			logger.Error().Err(err).Msg("Failed to close spotify client")
		}
	}()

	if err := ensureLogin(ctx, logger, client); nil != err {
		return err
	}

	var failures int
	for _, link := range links {
		if err := client.DownloadURL(ctx, logger, link); nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return ctxErr
			}

			failures++
			logger.Error().Err(err).Str("link", link).Msg("Failed to download link")
		}
	}

	if failures > 0 {
		logger.Error().Int("failures", failures).Int("total", len(links)).Msg("Some links failed to download")

		return exitCodeError(1)
	}

	return nil
}

func runPlaylists(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conf, logger, err := loadConfig(cmd)
	if nil != err {
		return err
	}

	client, err := newClient(conf)
	if nil != err {
		return err
	}
	defer func() {
		if err := client.Close(); nil != err {
			logger.Error().Err(err).Msg("Failed to close spotify client")
		}
	}()

	if err := ensureLogin(ctx, logger, client); nil != err {
		return err
	}

	if err := client.Downloader.DownloadAllUserPlaylists(ctx, logger); nil != err {
		return fmt.Errorf("download user playlists: %w", err)
	}

	return nil
}

func runLiked(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conf, logger, err := loadConfig(cmd)
	if nil != err {
		return err
	}

	client, err := newClient(conf)
	if nil != err {
		return err
	}
	defer func() {
		if err := client.Close(); nil != err {
			logger.Error().Err(err).Msg("Failed to close spotify client")
		}
	}()

	if err := ensureLogin(ctx, logger, client); nil != err {
		return err
	}

	if err := client.Downloader.DownloadLiked(ctx, logger); nil != err {
		return fmt.Errorf("download liked songs: %w", err)
	}

	return nil
}

func runLikedArtists(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conf, logger, err := loadConfig(cmd)
	if nil != err {
		return err
	}

	client, err := newClient(conf)
	if nil != err {
		return err
	}
	defer func() {
		if err := client.Close(); nil != err {
			logger.Error().Err(err).Msg("Failed to close spotify client")
		}
	}()

	if err := ensureLogin(ctx, logger, client); nil != err {
		return err
	}

	if err := client.Downloader.DownloadLikedArtists(ctx, logger); nil != err {
		return fmt.Errorf("download followed artists: %w", err)
	}

	return nil
}

type searchItem struct {
	Kind types.LinkKind
	ID   string
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return errors.New("a search query argument is required")
	}

	conf, logger, err := loadConfig(cmd)
	if nil != err {
		return err
	}

	client, err := newClient(conf)
	if nil != err {
		return err
	}
	defer func() {
		if err := client.Close(); nil != err {
			logger.Error().Err(err).Msg("Failed to close spotify client")
		}
	}()

	if err := ensureLogin(ctx, logger, client); nil != err {
		return err
	}

	// A pasted link goes straight to download.
	if link, err := spotify.ParseLink(query); nil == err {
		return client.Download(ctx, logger, link)
	}

	results, err := client.API.Search(ctx, logger, query, conf.Spotify.SearchLimit)
	if nil != err {
		return fmt.Errorf("search catalog: %w", err)
	}
	if results.Empty() {
		logger.Warn().Str("query", query).Msg("No results found")

		return nil
	}

	items := renderSearchResults(results)

	var selection string
	prompt := &survey.Input{ //nolint:exhaustruct
		Message: fmt.Sprintf("Items to download (e.g. 1,3,5-%d, 'all' or 'exit'):", len(items)),
	}
	if err := survey.AskOne(prompt, &selection, survey.WithValidator(survey.Required)); nil != err {
		return fmt.Errorf("prompt for selection: %w", err)
	}

	selection = strings.TrimSpace(selection)
	if selection == "exit" {
		return nil
	}

	var selected []int
	if selection == "all" {
		for i := range items {
			selected = append(selected, i+1)
		}
	} else {
		selected, err = parseSelection(selection, len(items))
		if nil != err {
			return fmt.Errorf("parse selection: %v", err)
		}
	}

	var failures int
	for _, n := range selected {
		item := items[n-1]
		if err := client.Download(ctx, logger, types.Link{Kind: item.Kind, ID: item.ID}); nil != err {
			if ctxErr := ctx.Err(); nil != ctxErr {
				return ctxErr
			}

			failures++
			logger.Error().Err(err).Str("id", item.ID).Msg("Failed to download selected item")
		}
	}

	if failures > 0 {
		return exitCodeError(1)
	}

	return nil
}

// renderSearchResults prints the result table and returns the items in
// display order so selections index into it.
func renderSearchResults(results *types.SearchResults) []searchItem {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Type", "Name", "Artists", "Extra"})

	var items []searchItem
	appendItem := func(kind types.LinkKind, id string, row table.Row) {
		items = append(items, searchItem{Kind: kind, ID: id})
		t.AppendRow(append(table.Row{len(items), kind.String()}, row...))
	}

	for _, track := range results.Tracks {
		appendItem(types.LinkKindTrack, track.ID, table.Row{track.Name, track.Artists, ""})
	}
	for _, album := range results.Albums {
		extra := fmt.Sprintf("%s, %d tracks", album.Year, album.TotalTracks)
		appendItem(types.LinkKindAlbum, album.ID, table.Row{album.Name, album.Artists, extra})
	}
	for _, playlist := range results.Playlists {
		extra := fmt.Sprintf("%d tracks", playlist.TotalTracks)
		appendItem(types.LinkKindPlaylist, playlist.ID, table.Row{playlist.Name, playlist.Owner, extra})
	}
	for _, artist := range results.Artists {
		appendItem(types.LinkKindArtist, artist.ID, table.Row{artist.Name, "", artist.Genres})
	}

	t.Render()

	return items
}

// parseSelection expands inputs like "1,3,5-8" into sorted unique item
// numbers, dropping out-of-range values.
func parseSelection(input string, max int) ([]int, error) {
	seen := make(map[int]struct{})
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		bounds := strings.SplitN(part, "-", 2)

		lo, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if nil != err {
			return nil, fmt.Errorf("invalid selection %q: %v", part, err)
		}

		hi := lo
		if len(bounds) == 2 {
			hi, err = strconv.Atoi(strings.TrimSpace(bounds[1]))
			if nil != err {
				return nil, fmt.Errorf("invalid selection %q: %v", part, err)
			}
		}

		for i := lo; i <= hi; i++ {
			if i >= 1 && i <= max {
				seen[i] = struct{}{}
			}
		}
	}

	if len(seen) == 0 {
		return nil, errors.New("selection matched no items")
	}

	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)

	return out, nil
}
