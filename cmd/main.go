package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slotfinder/internal/attendees"
	"slotfinder/internal/availability"
	"slotfinder/internal/config"
	"slotfinder/internal/finder"
	"slotfinder/internal/google"
	"slotfinder/internal/icloud"
	"slotfinder/internal/models"
	"slotfinder/internal/report"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "slotfinder",
		Usage: "Find meeting times that suit the most attendees.",
		Commands: []*cli.Command{
			authCommand(),
			findCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account so its free/busy data can be queried.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := google.TokenFile(accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func findCommand() *cli.Command {
	return &cli.Command{
		Name:  "find",
		Usage: "Propose meeting times for a list of attendees.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "attendees", Aliases: []string{"a"}, Usage: "Attendees as 'email' or 'Name <email>', comma separated."},
			&cli.StringFlag{Name: "attendees-file", Usage: "Read attendees from a file, one or more per line."},
			&cli.StringFlag{Name: "start-date", Usage: "First day to search (YYYY-MM-DD). Defaults to today."},
			&cli.IntFlag{Name: "days", Value: 7, Usage: "Number of days to search from the start date."},
			&cli.StringFlag{Name: "start-time", Value: "09:00", Usage: "Earliest meeting start each day (HH:MM)."},
			&cli.StringFlag{Name: "end-time", Value: "17:00", Usage: "Latest meeting end each day (HH:MM)."},
			&cli.IntFlag{Name: "slot-length", Value: 30, Usage: "Meeting length in minutes."},
			&cli.BoolFlag{Name: "include-self", Usage: "Add yourself to the attendees."},
			&cli.StringFlag{Name: "source", Usage: "Availability source: demo, ics, google or caldav. Overrides SLOTFINDER_SOURCE."},
			&cli.StringFlag{Name: "ics-file", Usage: "iCalendar file for the ics source. Overrides SLOTFINDER_ICS_FILE."},
			&cli.StringFlag{Name: "sort", Usage: "Re-sort the proposals by dateTime, availableCount, percentage or unavailableAttendees."},
			&cli.BoolFlag{Name: "desc", Usage: "Sort descending. Used with --sort."},
			&cli.StringFlag{Name: "ics-out", Usage: "Also write the proposals as tentative events to this .ics file."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if c.IsSet("source") {
				cfg.Source = strings.ToLower(c.String("source"))
			}
			if c.IsSet("ics-file") {
				cfg.ICSFile = c.String("ics-file")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := setupLogger(cfg.LogLevel)
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			now := time.Now().In(loc)

			source, err := newSource(c.Context, logger, cfg, loc, now)
			if err != nil {
				return err
			}
			logger.Info("Using availability source.", "source", source.Name())

			text, err := attendeeText(c)
			if err != nil {
				return err
			}
			emails, parsedNames := attendees.Parse(text)

			if c.Bool("include-self") {
				self := cfg.SelfEmail
				if id, ok := source.(availability.Identity); ok {
					self = id.SelfEmail()
				}
				if self == "" {
					logger.Warn("Cannot include yourself: no self email known. Set SLOTFINDER_SELF_EMAIL.")
				} else if !contains(emails, self) {
					emails = append(emails, self)
				}
			}

			req, err := buildRequest(c, emails, loc, now)
			if err != nil {
				return err
			}
			if err := req.Validate(now); err != nil {
				return fmt.Errorf("invalid request: %w", err)
			}

			results, err := finder.New(logger, source, cfg.LookupConcurrency).Find(c.Context, req)
			if err != nil {
				return fmt.Errorf("error finding meeting times: %w", err)
			}

			if column := c.String("sort"); column != "" {
				results, err = report.Sort(results, report.Column(column), c.Bool("desc"))
				if err != nil {
					return err
				}
			}

			var sourceNames map[string]string
			if namer, ok := source.(availability.Namer); ok {
				sourceNames = namer.DisplayNames()
			}
			names := attendees.Merge(parsedNames, sourceNames)

			if err := report.WriteTable(c.App.Writer, results, names, loc); err != nil {
				return fmt.Errorf("failed to print results: %w", err)
			}

			if path := c.String("ics-out"); path != "" && len(results) > 0 {
				if err := writeICS(path, results, req, cfg.SelfEmail, names); err != nil {
					return err
				}
				logger.Info("Wrote proposals.", "file", path, "count", len(results))
			}
			return nil
		},
	}
}

// newSource builds the availability source selected by the configuration.
func newSource(ctx context.Context, logger *slog.Logger, cfg config.Config, loc *time.Location, now time.Time) (availability.Source, error) {
	switch cfg.Source {
	case config.SourceICS:
		src, err := availability.LoadICSFile(cfg.ICSFile, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to load ics source: %w", err)
		}
		return src, nil
	case config.SourceGoogle:
		account, err := googleAccount(logger, cfg.GoogleAccount, ".")
		if err != nil {
			return nil, err
		}
		client, err := google.NewClient(ctx, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, account)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client for account %s: %w", account, err)
		}
		return client, nil
	case config.SourceCalDAV:
		client, err := icloud.NewClient(ctx, logger, cfg.CalDAVEndpoint, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.CalDAVCalendars)
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		return client, nil
	default:
		return availability.NewDemo(now), nil
	}
}

// googleAccount picks the account whose token is used. Without a configured
// account the only token in dir is used; several tokens are ambiguous.
func googleAccount(logger *slog.Logger, configured, dir string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	accounts, err := google.GetTokenAccounts(dir)
	if err != nil {
		return "", fmt.Errorf("could not find any google accounts, did you run auth command? %w", err)
	}
	switch len(accounts) {
	case 0:
		return "", fmt.Errorf("no google accounts found. Run the 'auth' command first")
	case 1:
		logger.Info("Using the only authenticated Google account.", "account", accounts[0])
		return accounts[0], nil
	default:
		return "", fmt.Errorf("several google accounts found (%s). Set GOOGLE_ACCOUNT to choose one", strings.Join(accounts, ", "))
	}
}

func attendeeText(c *cli.Context) (string, error) {
	text := strings.Join(c.StringSlice("attendees"), "\n")
	if path := c.String("attendees-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read attendees file: %w", err)
		}
		text += "\n" + string(data)
	}
	return text, nil
}

func buildRequest(c *cli.Context, emails []string, loc *time.Location, now time.Time) (models.Request, error) {
	startDate := models.Midnight(now, loc)
	if s := c.String("start-date"); s != "" {
		d, err := models.ParseDate(s, loc)
		if err != nil {
			return models.Request{}, err
		}
		startDate = d
	}
	dailyStart, err := models.ParseClock(c.String("start-time"))
	if err != nil {
		return models.Request{}, err
	}
	dailyEnd, err := models.ParseClock(c.String("end-time"))
	if err != nil {
		return models.Request{}, err
	}
	days := c.Int("days")
	if days < 0 {
		return models.Request{}, fmt.Errorf("days must not be negative")
	}

	y, m, d := startDate.Date()
	return models.Request{
		Attendees:  emails,
		StartDate:  startDate,
		EndDate:    time.Date(y, m, d+days, 0, 0, 0, 0, loc),
		DailyStart: dailyStart,
		DailyEnd:   dailyEnd,
		SlotLength: c.Int("slot-length"),
		Location:   loc,
	}, nil
}

func writeICS(path string, results []models.Result, req models.Request, organizer string, names attendees.Directory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create ics file: %w", err)
	}
	defer f.Close()

	length := time.Duration(req.SlotLength) * time.Minute
	if err := report.WriteICS(f, results, length, organizer, req.Attendees, names); err != nil {
		return err
	}
	return f.Close()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
