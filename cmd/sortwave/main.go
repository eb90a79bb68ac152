package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/guidoenr/sortwave/internal/app"
	"github.com/guidoenr/sortwave/internal/audio"
	"github.com/guidoenr/sortwave/internal/cli"
	"github.com/guidoenr/sortwave/internal/imageio"
	"github.com/guidoenr/sortwave/internal/params"
	"github.com/guidoenr/sortwave/internal/pixelsort"
	"github.com/guidoenr/sortwave/internal/render"
)

// version is set via ldflags at build time
var version = "dev"

var CLI struct {
	Image  string `arg:"" name:"image" help:"Image to sort (png, jpeg, gif, bmp, tiff, webp)" optional:""`
	Source string `arg:"" name:"source" help:"Audio file (.wav, .mp3, .flac) or capture device name substring" optional:""`

	Rotate           int     `help:"Quarter turns before sorting: 0 rows, 1 columns, 2 rows reversed, 3 columns reversed" default:"1"`
	Key              string  `help:"Sort key: h (hue), l (lightness) or s (saturation)" default:"h" enum:"h,l,s,hue,lightness,saturation"`
	Low              int     `help:"Lower lightness bound of the sorted range (0-255)" default:"0"`
	FPS              float64 `name:"fps" help:"Frame rate cap, 0 for unlimited" default:"0"`
	Output           string  `help:"Output: sdl, terminal or ascii" default:"${default_output}" enum:"sdl,terminal,ascii"`
	Palette          string  `help:"Glyph palette for ascii output (default|box|lines|spark)" default:"default"`
	Workers          int     `help:"Row workers, 0 for one per CPU" default:"0"`
	MaxSize          string  `name:"max-size" help:"Scale the image down to fit WxH" placeholder:"WxH"`
	NoAudio          bool    `help:"Drive the sort with a synthetic signal"`
	ListAudioDevices bool    `name:"list-audio-devices" help:"List audio input devices and exit"`
	WebPort          int     `name:"web-port" help:"Serve the control panel on this port, 0 to disable" default:"0"`
	Profile          string  `help:"Write per-frame timings as CSV to this file" type:"path"`
	Debug            bool    `help:"Verbose, timestamped logging on stdout"`
	Version          bool    `help:"Show version information"`
}

func init() {
	// SDL must be driven from the thread that created the window.
	runtime.LockOSThread()
}

func defaultOutput() string {
	if render.SupportsSDL() {
		return string(render.ModeSDL)
	}
	return string(render.ModeTerminal)
}

// logOutput picks the log destination. Terminal frames own the tty, so their
// logs are dropped unless --debug asks for them.
func logOutput(debug bool, output string) io.Writer {
	switch {
	case debug:
		return os.Stdout
	case output == string(render.ModeSDL):
		return os.Stderr
	default:
		return io.Discard
	}
}

func main() {
	kong.Parse(&CLI,
		kong.Name("sortwave"),
		kong.Description("Pixel-sort a still image in time with live audio."),
		kong.Vars{"version": version, "default_output": defaultOutput()},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter()),
		kong.Configuration(kong.JSON, "~/.config/sortwave/config.json"),
	)
	os.Exit(run())
}

func run() int {
	if CLI.Version {
		cli.PrintVersion(version)
		return 0
	}

	logger := log.New(logOutput(CLI.Debug, CLI.Output), "[sortwave] ", log.LstdFlags)
	if !CLI.Debug {
		logger.SetFlags(0)
	}

	needDevice := CLI.ListAudioDevices || (!CLI.NoAudio && !audio.IsFileSource(CLI.Source))
	if needDevice {
		if err := audio.Initialize(); err != nil {
			cli.PrintError(fmt.Sprintf("failed to initialize PortAudio: %v", err))
			return 1
		}
		defer audio.Terminate()
	}

	if CLI.ListAudioDevices {
		devices, err := audio.ListDevices()
		if err != nil {
			cli.PrintError(fmt.Sprintf("list devices: %v", err))
			return 1
		}
		auto := ""
		if dev, err := audio.AutoDetectDevice(); err == nil && dev != nil {
			auto = dev.Name
		}
		cli.PrintDevices(os.Stdout, devices, auto)
		return 0
	}

	cfg, err := buildConfig(logger)
	if err != nil {
		cli.PrintError(err.Error())
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg)
	if err != nil {
		cli.PrintError(fmt.Sprintf("failed to start: %v", err))
		return 1
	}
	runErr := a.Run(ctx)
	closeErr := a.Close()
	if !CLI.Debug {
		logger.SetOutput(os.Stderr)
	}
	if err := closeErr; err != nil {
		logger.Printf("cleanup error: %v", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		cli.PrintError(fmt.Sprintf("runtime error: %v", runErr))
		return 1
	}
	return 0
}

func buildConfig(logger *log.Logger) (app.Config, error) {
	if CLI.Image == "" {
		return app.Config{}, errors.New("<image> is required")
	}
	if CLI.Low < 0 || CLI.Low > 255 {
		return app.Config{}, fmt.Errorf("invalid --low %d (must be 0-255)", CLI.Low)
	}
	rot, err := pixelsort.ParseRotation(CLI.Rotate)
	if err != nil {
		return app.Config{}, fmt.Errorf("invalid --rotate: %w", err)
	}
	key, err := pixelsort.ParseSortKey(CLI.Key)
	if err != nil {
		return app.Config{}, fmt.Errorf("invalid --key: %w", err)
	}
	mode, err := render.ParseMode(CLI.Output)
	if err != nil {
		return app.Config{}, err
	}
	bound, err := imageio.ParseSize(CLI.MaxSize)
	if err != nil {
		return app.Config{}, fmt.Errorf("invalid --max-size: %w", err)
	}
	if CLI.FPS < 0 {
		return app.Config{}, fmt.Errorf("invalid --fps %.2f (must be >= 0)", CLI.FPS)
	}

	img, format, err := imageio.Load(CLI.Image, bound)
	if err != nil {
		return app.Config{}, fmt.Errorf("load image: %w", err)
	}
	logger.Printf("loaded %s (%s, %dx%d)", CLI.Image, format, img.Bounds().Dx(), img.Bounds().Dy())

	p := params.Defaults()
	p.Low = uint8(CLI.Low)
	p.Rotation = rot
	p.Key = key

	return app.Config{
		Image:        img,
		Source:       CLI.Source,
		DisableAudio: CLI.NoAudio,
		Output:       mode,
		Palette:      CLI.Palette,
		Workers:      CLI.Workers,
		TargetFPS:    CLI.FPS,
		Params:       p,
		WebPort:      CLI.WebPort,
		ProfilePath:  CLI.Profile,
		Keyboard:     true,
		Log:          logger,
	}, nil
}
