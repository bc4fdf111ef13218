package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/smartgarden/backend/internal/adapters/cache"
	"github.com/smartgarden/backend/internal/adapters/providers/geolocation"
	"github.com/smartgarden/backend/internal/adapters/providers/scheduling"
	"github.com/smartgarden/backend/internal/application/gateway"
	"github.com/smartgarden/backend/internal/domain/entities"
	"github.com/smartgarden/backend/internal/domain/providers"
	"github.com/smartgarden/backend/internal/imaging"
	"github.com/smartgarden/backend/internal/infrastructure/clients/plantid"
	"github.com/smartgarden/backend/internal/infrastructure/clients/plantstore"
	"github.com/smartgarden/backend/internal/infrastructure/observability"
	"github.com/smartgarden/backend/pkg/config"
	apperrors "github.com/smartgarden/backend/pkg/errors"
)

var errUsage = errors.New("usage")

type app struct {
	cfg       *config.Config
	kv        providers.SessionStore
	in        *bufio.Reader
	out       io.Writer
	store     *plantstore.Client
	session   *gateway.Session
	scheduler *scheduling.CronScheduler
	reminders *gateway.Reminders
	records   *gateway.RecordGateway
}

func newApp(cfg *config.Config, kv providers.SessionStore, stdin io.Reader, stdout io.Writer) *app {
	a := &app{
		cfg:   cfg,
		kv:    kv,
		in:    bufio.NewReader(stdin),
		out:   stdout,
		store: plantstore.NewClientFromConfig(&cfg.Client),
	}
	a.session = gateway.NewSession(kv)
	a.scheduler = scheduling.NewCronScheduler(time.Local, a.notify)
	a.reminders = gateway.NewReminders(a.scheduler, kv)
	a.records = gateway.NewRecordGateway(a.store, a.session, a.reminders)
	return a
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.session.ClearCredentials(ctx)
	case "identify":
		return a.identify(ctx, args)
	case "list":
		return a.list(ctx)
	case "search":
		return a.search(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "rename":
		return a.rename(ctx, args)
	case "water":
		return a.water(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "ask":
		return a.ask(ctx, args)
	case "remind":
		return a.remind(ctx, args)
	case "reminders":
		return a.listReminders(ctx)
	case "watch":
		return a.watch(ctx)
	default:
		return errUsage
	}
}

func (a *app) readPassword() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", apperrors.NewValidationError("a password is required on stdin")
	}
	return password, nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}
	user, err := a.store.Signup(ctx, args[0], password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account created for %s. Run 'garden login %s' to sign in.\n", user.Email, user.Email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	password, err := a.readPassword()
	if err != nil {
		return err
	}
	pair, err := a.store.Login(ctx, args[0], password)
	if apperrors.IsType(err, apperrors.ErrorTypeAuthRequired) {
		return apperrors.NewUnauthorizedError("invalid email or password")
	}
	if err != nil {
		return err
	}
	if err := a.session.SaveCredentials(ctx, pair); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed in.")
	return nil
}

func (a *app) recognizer() providers.RecognitionProvider {
	pre := imaging.New(a.cfg.Imaging.MaxWidth, a.cfg.Imaging.Quality, a.cfg.Imaging.TempDir)
	return plantid.NewClientFromConfig(&a.cfg.PlantID, pre, a.location(), nil)
}

func (a *app) location() providers.LocationProvider {
	static := geolocation.NewStaticProvider(a.cfg.PlantID.Latitude, a.cfg.PlantID.Longitude)
	if a.cfg.Location.Address == "" {
		return static
	}
	geoCache := cache.NewSessionAdapter(a.kv)
	if a.cfg.Location.GeocodeURL != "" {
		return geolocation.NewGoogleProviderWithOptions(a.cfg.Location.GoogleMapsAPIKey, a.cfg.Location.Address, geoCache, static, a.cfg.Location.GeocodeURL, nil)
	}
	return geolocation.NewGoogleProvider(a.cfg.Location.GoogleMapsAPIKey, a.cfg.Location.Address, geoCache, static)
}

func (a *app) identify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("identify", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	health := fs.Bool("health", false, "also assess plant health")
	requireHealth := fs.Bool("require-health", false, "fail when the health assessment fails")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	// Stored credentials are checked first so an unsigned user never spends an API call
	if _, err := a.session.Credentials(ctx); err != nil {
		return err
	}

	identifier := gateway.NewIdentifier(a.recognizer(), a.records)
	result, err := identifier.Identify(ctx, fs.Arg(0), gateway.IdentifyOptions{
		AssessHealth:  *health || *requireHealth,
		RequireHealth: *requireHealth,
	})
	if err != nil {
		return err
	}

	printRecord(a.out, result.Record)
	if result.HealthErr != nil {
		fmt.Fprintf(a.out, "\nHealth assessment skipped: %s\n", gateway.UserMessage(result.HealthErr))
	}
	return nil
}

func (a *app) list(ctx context.Context) error {
	records, err := a.records.List(ctx)
	if err != nil {
		return err
	}
	printTable(a.out, records)
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	records, err := a.records.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	printTable(a.out, records)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return errUsage
	}
	id := ""
	if len(args) == 1 {
		id = args[0]
	}
	record, err := a.records.View(ctx, id)
	if err != nil {
		return err
	}
	printRecord(a.out, record)
	return nil
}

func (a *app) rename(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	name := strings.Join(args[1:], " ")
	record, err := a.records.Update(ctx, args[0], entities.PlantUpdate{Name: &name})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed %s to %q.\n", record.ID, record.Name)
	return nil
}

func (a *app) water(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	day := time.Now().Format(time.DateOnly)
	if len(args) == 2 {
		if _, err := time.Parse(time.DateOnly, args[1]); err != nil {
			return apperrors.NewValidationError("date must be YYYY-MM-DD")
		}
		day = args[1]
	}
	record, err := a.records.Update(ctx, args[0], entities.PlantUpdate{LastWatered: &day})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s watered on %s.\n", record.Name, record.LastWatered)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.records.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted.")
	return nil
}

func (a *app) ask(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.String("id", "", "plant to ask about (defaults to the current plant)")
	if err := fs.Parse(args); err != nil || fs.NArg() == 0 {
		return errUsage
	}

	record, err := a.records.View(ctx, *id)
	if err != nil {
		return err
	}
	if record.Recognition.AccessToken == "" {
		return apperrors.NewValidationError("this plant has no identification to ask about")
	}

	answer, err := gateway.NewIdentifier(a.recognizer(), a.records).Ask(ctx, record, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, answer.Answer)
	if answer.RemainingCalls > 0 {
		fmt.Fprintf(a.out, "(%d follow-up questions left)\n", answer.RemainingCalls)
	}
	return nil
}

func (a *app) remind(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remind", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	kind := fs.String("kind", string(entities.ReminderWatering), "watering or fertilizing")
	if err := fs.Parse(args); err != nil || fs.NArg() < 2 {
		return errUsage
	}

	record, err := a.records.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	reminder, err := a.reminders.Schedule(ctx, record, entities.ReminderKind(*kind), strings.Join(fs.Args()[1:], " "))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s reminder for %s set (%s).\n", reminder.Kind, reminder.PlantName, reminder.Schedule)
	if runs, err := scheduling.NextRuns(reminder.Schedule, time.Now(), 1); err == nil && len(runs) > 0 {
		fmt.Fprintf(a.out, "Next: %s. Run 'garden watch' to receive it.\n", runs[0].Format("Mon 2 Jan 15:04"))
	}
	return nil
}

func (a *app) listReminders(ctx context.Context) error {
	reminders, err := a.reminders.List(ctx)
	if err != nil {
		return err
	}
	if len(reminders) == 0 {
		fmt.Fprintln(a.out, "No reminders.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLANT\tKIND\tSCHEDULE")
	for _, r := range reminders {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.PlantName, r.Kind, r.Schedule)
	}
	return tw.Flush()
}

func (a *app) watch(ctx context.Context) error {
	restored, err := a.reminders.Restore(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Watching %d reminders. Press Ctrl-C to stop.\n", restored)

	a.scheduler.Start()
	<-ctx.Done()
	<-a.scheduler.Stop().Done()
	return nil
}

func (a *app) notify(ctx context.Context, reminder entities.Reminder) {
	verb := "Time to water"
	if reminder.Kind == entities.ReminderFertilizing {
		verb = "Time to fertilize"
	}
	fmt.Fprintf(a.out, "[%s] %s %s\n", time.Now().Format("15:04"), verb, reminder.PlantName)
	observability.LoggerFromContext(ctx).Info().Str("plant_id", reminder.PlantID).Str("kind", string(reminder.Kind)).Msg("reminder fired")
}

func printTable(w io.Writer, records []*entities.PlantRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No plants yet. Run 'garden identify <photo>' to add one.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLAST WATERED\tADDED")
	for _, r := range records {
		last := r.LastWatered
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Name, last, r.CreatedAt.Local().Format(time.DateOnly))
	}
	tw.Flush()
}

func printRecord(w io.Writer, r *entities.PlantRecord) {
	fmt.Fprintf(w, "%s (%s)\n", r.Name, r.ID)
	if top, ok := r.Classification.Top(); ok {
		fmt.Fprintf(w, "  Species:   %s, %.0f%% confidence\n", top.Name, top.Probability*100)
		if len(top.Details.CommonNames) > 0 {
			fmt.Fprintf(w, "  Also:      %s\n", strings.Join(top.Details.CommonNames, ", "))
		}
		fmt.Fprintf(w, "  Light:     %s\n", top.Details.BestLightCondition.OrDefault("unknown"))
		fmt.Fprintf(w, "  Watering:  %s\n", top.Details.BestWatering.OrDefault("unknown"))
		fmt.Fprintf(w, "  Soil:      %s\n", top.Details.BestSoilType.OrDefault("unknown"))
	}
	if r.LastWatered != "" {
		fmt.Fprintf(w, "  Watered:   %s\n", r.LastWatered)
	}
	if r.PlantHealth != nil {
		state := "needs attention"
		if r.PlantHealth.IsHealthy.Binary {
			state = "healthy"
		}
		fmt.Fprintf(w, "  Health:    %s (%.0f%%)\n", state, r.PlantHealth.IsHealthy.Probability*100)
		if r.PlantHealth.Disease != nil {
			for i, d := range r.PlantHealth.Disease.Suggestions {
				if i == 3 {
					break
				}
				fmt.Fprintf(w, "    - %s, %.0f%%\n", d.Name, d.Probability*100)
			}
		}
	}
	if len(r.Classification.Suggestions) > 1 {
		fmt.Fprintln(w, "  Other candidates:")
		for _, s := range r.Classification.Suggestions[1:] {
			fmt.Fprintf(w, "    - %s, %.0f%%\n", s.Name, s.Probability*100)
		}
	}
}
