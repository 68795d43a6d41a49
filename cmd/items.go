package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/emersion/go-ical"
	"github.com/urfave/cli/v2"

	"ewscal/internal/config"
	"ewscal/internal/ews"
	"ewscal/internal/google"
	"ewscal/internal/icloud"
	"ewscal/internal/models"
)

func kindFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "kind",
		Value: "calendar",
		Usage: "Item type of a JSON payload: 'calendar' or 'message'.",
	}
}

func schemaFor(kind string) (*models.Schema, error) {
	switch strings.ToLower(kind) {
	case "calendar", "calendaritem", "event":
		return ews.CalendarItemSchema, nil
	case "message":
		return ews.MessageSchema, nil
	}
	return nil, fmt.Errorf("unknown item kind %q", kind)
}

func fieldsCommand() *cli.Command {
	return &cli.Command{
		Name:  "fields",
		Usage: "List the fields of an item type.",
		Flags: []cli.Flag{kindFlag()},
		Action: func(c *cli.Context) error {
			schema, err := schemaFor(c.String("kind"))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tURI\tACCESS")
			for _, f := range schema.Fields() {
				access := "rw"
				if f.ReadOnly {
					access = "ro"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Name, f.Kind, f.URI, access)
			}
			return w.Flush()
		},
	}
}

// remoteFlags select an event stored in iCloud or Google Calendar instead of a file.
func remoteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "uid", Usage: "Load the event with this UID from iCloud."},
		&cli.StringFlag{Name: "google-id", Usage: "Load the event with this ID from Google Calendar."},
		&cli.StringFlag{Name: "calendar", Value: "primary", Usage: "Google calendar holding --google-id."},
		&cli.StringFlag{Name: "account", Usage: "Google account name given to 'auth'. Optional with a single account."},
	}
}

// pickAccount resolves the Google account to use. An empty name is accepted
// only when exactly one account has a token.
func pickAccount(accounts []string, name string) (string, error) {
	if name != "" {
		for _, acc := range accounts {
			if acc == name {
				return acc, nil
			}
		}
		return "", fmt.Errorf("no token for google account %q, run the 'auth' command first", name)
	}
	switch len(accounts) {
	case 0:
		return "", errors.New("no google accounts found. Run the 'auth' command first")
	case 1:
		return accounts[0], nil
	}
	return "", fmt.Errorf("several google accounts found (%s), pick one with --account", strings.Join(accounts, ", "))
}

// loadGoogleEvent reads event id from a Google calendar, saving back through
// the same calendar.
func loadGoogleEvent(c *cli.Context, id string) (*loadedItem, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	accounts, err := google.GetTokenAccounts(".")
	if err != nil {
		return nil, fmt.Errorf("could not list google accounts: %w", err)
	}
	acc, err := pickAccount(accounts, c.String("account"))
	if err != nil {
		return nil, err
	}
	client, err := google.NewClient(c.Context, setupLogger(cfg.LogLevel), cfg.GoogleClientID, cfg.GoogleClientSecret, acc)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client for account %s: %w", acc, err)
	}
	events := client.Events(c.String("calendar"))
	item, err := events.GetEvent(c.Context, id)
	if err != nil {
		return nil, err
	}
	return &loadedItem{
		record: item.Record,
		save:   func(c *cli.Context) error { return events.Save(c.Context, item) },
	}, nil
}

// loadedItem is an item read by show or edit, with the action that persists it.
type loadedItem struct {
	record *models.Record
	save   func(c *cli.Context) error
}

// loadItem reads the item named by the command's arguments: a JSON payload,
// an .ics file, with --uid an event from the iCloud calendar, or with
// --google-id an event from Google Calendar.
func loadItem(c *cli.Context) (*loadedItem, error) {
	if c.String("uid") != "" && c.String("google-id") != "" {
		return nil, errors.New("use either --uid or --google-id")
	}
	if id := c.String("google-id"); id != "" {
		return loadGoogleEvent(c, id)
	}
	if uid := c.String("uid"); uid != "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return nil, err
		}
		client, err := newICloudClient(setupLogger(cfg.LogLevel), cfg, nil)
		if err != nil {
			return nil, err
		}
		item, err := client.GetEvent(c.Context, uid)
		if err != nil {
			return nil, err
		}
		return &loadedItem{
			record: item.Record,
			save:   func(c *cli.Context) error { return client.Save(c.Context, item) },
		}, nil
	}

	if c.NArg() != 1 {
		return nil, errors.New("expected a payload file, --uid or --google-id")
	}
	file := c.Args().First()
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(file), ".ics") {
		cal, err := ical.NewDecoder(f).Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		snap, err := icloud.SnapshotFromICal(cal, time.UTC)
		if err != nil {
			return nil, err
		}
		snap.ID, _ = cal.Events()[0].Props.Text(ical.PropUID)
		item, err := ews.CalendarItemFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		return &loadedItem{record: item.Record}, nil
	}

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	schema, err := schemaFor(c.String("kind"))
	if err != nil {
		return nil, err
	}
	if schema == ews.MessageSchema {
		m, err := ews.MessageFromPayload(payload)
		if err != nil {
			return nil, err
		}
		return &loadedItem{record: m.Record}, nil
	}
	item, err := ews.CalendarItemFromPayload(payload)
	if err != nil {
		return nil, err
	}
	return &loadedItem{record: item.Record}, nil
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print an item as a JSON payload.",
		ArgsUsage: "[payload.json|event.ics]",
		Flags:     append([]cli.Flag{kindFlag()}, remoteFlags()...),
		Action: func(c *cli.Context) error {
			it, err := loadItem(c)
			if err != nil {
				return err
			}
			out, err := ews.EncodePayload(it.record)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, string(out))
			return err
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change fields of an item and print the resulting update. Remote events are saved back.",
		ArgsUsage: "[payload.json|event.ics]",
		Flags: append([]cli.Flag{
			kindFlag(),
			&cli.StringSliceFlag{Name: "set", Usage: "Assign a field, as name=value. Repeatable."},
			&cli.StringSliceFlag{Name: "clear", Usage: "Remove a field's value. Repeatable."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the update without saving."},
		}, remoteFlags()...),
		Action: func(c *cli.Context) error {
			it, err := loadItem(c)
			if err != nil {
				return err
			}
			if err := applyEdits(it.record, c.StringSlice("set"), c.StringSlice("clear")); err != nil {
				return err
			}
			if !it.record.HasChanges() {
				fmt.Fprintln(c.App.Writer, "no changes")
				return nil
			}

			fmt.Fprintf(c.App.Writer, "dirty fields: %s\n", strings.Join(it.record.DirtyFields(), ", "))
			update, err := ews.BuildUpdate(it.record)
			switch {
			case errors.Is(err, ews.ErrNotPersisted), errors.Is(err, ews.ErrMissingChangeKey):
				fmt.Fprintf(c.App.Writer, "no update request: %v\n", err)
			case err != nil:
				return err
			default:
				printUpdate(c.App.Writer, update)
			}

			if it.save == nil || c.Bool("dry-run") {
				return nil
			}
			return it.save(c)
		},
	}
}

// applyEdits parses each name=value assignment against the record's schema.
func applyEdits(r *models.Record, sets, clears []string) error {
	for _, assignment := range sets {
		name, text, ok := strings.Cut(assignment, "=")
		if !ok {
			return fmt.Errorf("invalid assignment %q, want name=value", assignment)
		}
		name = strings.TrimSpace(name)
		f, ok := r.Schema().Field(name)
		if !ok {
			return &models.SchemaError{Schema: r.Schema().Name(), Field: name}
		}
		v, err := ews.ParseText(f, text)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", f.Name, err)
		}
		if err := r.Set(f.Name, v); err != nil {
			return err
		}
	}
	for _, name := range clears {
		if err := r.Clear(name); err != nil {
			return err
		}
	}
	return nil
}

func printUpdate(w io.Writer, u ews.Update) {
	fmt.Fprintf(w, "UpdateItem %s (change key %s)\n", u.ItemID, u.ChangeKey)
	for _, ch := range u.Changes {
		if ch.Op == ews.OpDelete {
			fmt.Fprintf(w, "  %s %s\n", ch.Op, ch.URI)
			continue
		}
		fmt.Fprintf(w, "  %s %s = %v\n", ch.Op, ch.URI, ch.Value)
	}
}
