// Command reporter отправляет отчёт об инциденте из командной строки
// и сохраняет локальные копии отправленного (JSON, текст, PDF).
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shenikar/ecowatch_reports/internal/capture"
	"github.com/shenikar/ecowatch_reports/internal/export"
	"github.com/shenikar/ecowatch_reports/internal/models"
	"github.com/shenikar/ecowatch_reports/pkg/logger"
)

type imageSource int

const (
	imageNone imageSource = iota
	imageFromFile
	imageFromCamera
)

var errEmptyValue = errors.New("value must not be empty")

type options struct {
	endpoint    string
	incident    string
	description string
	lat         string
	lng         string
	accuracy    string
	place       string
	imagePath   string
	snapshotCmd string
	imageSource imageSource
	recordCmd   string
	exportDir   string
	exports     string
	logLevel    string
}

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	log := logger.NewWithOutput(opts.logLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, log); err != nil {
		log.WithError(err).Error("Reporter failed")
		os.Exit(1)
	}
}

// parseFlags разбирает аргументы; -image и -snapshot-cmd запоминают, какой из них указан последним
func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.endpoint, "endpoint", envOr("REPORTER_ENDPOINT", "http://localhost:8080"), "base URL of the report gateway")
	fs.StringVar(&o.incident, "type", string(models.DefaultIncidentType), "incident type: wildfire, deforestation or other")
	fs.StringVar(&o.description, "description", "", `what you observed; "-" reads it from stdin`)
	fs.StringVar(&o.lat, "lat", "", "latitude")
	fs.StringVar(&o.lng, "lng", "", "longitude")
	fs.StringVar(&o.accuracy, "accuracy", "", "position accuracy in meters")
	fs.StringVar(&o.place, "place", "", "free-text place name")
	fs.Func("image", "photo file to attach", func(value string) error {
		if value == "" {
			return errEmptyValue
		}
		o.imagePath, o.imageSource = value, imageFromFile
		return nil
	})
	fs.Func("snapshot-cmd", `command that writes a JPEG frame to stdout, e.g. "fswebcam --no-banner -"`, func(value string) error {
		if strings.TrimSpace(value) == "" {
			return errEmptyValue
		}
		o.snapshotCmd, o.imageSource = value, imageFromCamera
		return nil
	})
	fs.StringVar(&o.recordCmd, "record-cmd", "", "command that records webm audio to stdout until interrupted")
	fs.StringVar(&o.exportDir, "export-dir", ".", "directory for the local copies")
	fs.StringVar(&o.exports, "export", "", "comma separated local copies to write: json,txt,pdf")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

func run(ctx context.Context, o options, log *logrus.Logger) error {
	form, err := capture.NewForm(capture.Options{
		Endpoint:  o.endpoint,
		UserAgent: "ecowatch-reporter/1.0",
		Locator:   capture.StaticLocator{Location: models.ParseLocation(o.lat, o.lng, o.accuracy)},
	})
	if err != nil {
		return err
	}

	form.SetType(models.IncidentType(o.incident))
	description, err := readDescription(o.description, os.Stdin)
	if err != nil {
		return err
	}
	form.SetDescription(description)
	form.SetLocationQuery(o.place)

	switch o.imageSource {
	case imageFromFile:
		if err := form.PickFile(o.imagePath); err != nil {
			return err
		}
	case imageFromCamera:
		takeSnapshot(ctx, form, o.snapshotCmd, log)
	}

	if o.recordCmd != "" {
		recordAudio(ctx, form, o.recordCmd, log)
	}
	if status := form.Status(); status != "" {
		fmt.Println(status)
	}

	outcome, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	if outcome.Result.Err != nil {
		log.WithError(outcome.Result.Err).Debug("Report delivery was not confirmed")
	}
	fmt.Println(form.Status())
	if preview := capture.MapPreviewURL(outcome.Receipt.Location, outcome.Receipt.LocationQuery); preview != "" {
		fmt.Println("Map:", preview)
	}

	return writeExports(o.exportDir, o.exports, outcome.Receipt)
}

func takeSnapshot(ctx context.Context, form *capture.Form, command string, log *logrus.Logger) {
	name, args := splitCommand(command)
	if err := form.StartCamera(ctx, capture.NewCommandCamera(name, args...)); err != nil {
		log.WithError(err).Debug("Camera start failed")
		return
	}
	defer func() { _ = form.StopCamera() }()

	if err := form.CapturePhoto(ctx); err != nil {
		log.WithError(err).Debug("Snapshot failed")
	}
}

func recordAudio(ctx context.Context, form *capture.Form, command string, log *logrus.Logger) {
	name, args := splitCommand(command)
	if err := form.StartRecording(ctx, capture.NewCommandMicrophone(name, args...)); err != nil {
		log.WithError(err).Debug("Microphone start failed")
		return
	}
	fmt.Print("Recording... press Enter to stop. ")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

	if err := form.StopRecording(); err != nil {
		log.WithError(err).Debug("Recording failed")
	}
}

func writeExports(dir, list string, receipt models.Receipt) error {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	base := "report-" + receipt.SubmittedAt.Format("20060102-150405")
	if receipt.ReportID != "" {
		base = "report-" + receipt.ReportID
	}

	for _, kind := range strings.Split(list, ",") {
		kind = strings.TrimSpace(kind)
		var (
			path string
			err  error
		)
		switch export.Format(kind) {
		case export.FormatJSON:
			path, err = writeFile(dir, base+".json", func(w io.Writer) error { return export.JSON(w, receipt) })
		case export.FormatText:
			path, err = writeFile(dir, base+".txt", func(w io.Writer) error { return export.Text(w, receipt) })
		case export.FormatPDF:
			path, err = writeDocument(dir, base, receipt)
		default:
			err = fmt.Errorf("unknown export format %q", kind)
		}
		if err != nil {
			return err
		}
		fmt.Println("Saved", path)
	}
	return nil
}

// writeDocument сохраняет PDF или, если он не собрался, HTML для печати
func writeDocument(dir, base string, receipt models.Receipt) (string, error) {
	var format export.Format
	tmp, err := writeFile(dir, base+".document", func(w io.Writer) error {
		var err error
		format, err = export.Document(w, receipt)
		return err
	})
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, base+"."+string(format))
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return path, nil
}

// writeFile не оставляет на диске недописанный файл
func writeFile(dir, name string, write func(io.Writer) error) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	err = write(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func readDescription(value string, stdin io.Reader) (string, error) {
	if value != "-" {
		return value, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("could not read description: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func splitCommand(command string) (string, []string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
