package selenium

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"

	wd "github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"pagedrill/internal/application/port/output"
	"pagedrill/internal/domain/entity"
)

const (
	Chrome  = "chrome"
	Firefox = "firefox"
	Edge    = "edge"
	Safari  = "safari"
	IE      = "ie"
	Opera   = "opera"
)

type Config struct {
	Browser string
	// DriversPath is the directory holding the driver executables, or the
	// executable itself.
	DriversPath  string
	ServerURI    string
	Headless     bool
	WindowWidth  int
	WindowHeight int
}

// Supported reports whether name is a browser this package can drive.
func Supported(name string) bool {
	switch name {
	case Chrome, Firefox, Edge, Safari, IE, Opera:
		return true
	}
	return false
}

// Capabilities builds the session request for a browser.
func Capabilities(cfg Config) (wd.Capabilities, error) {
	var args []string
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}

	switch cfg.Browser {
	case Chrome, Opera:
		if cfg.Headless {
			args = append(args, "--headless=new")
		}
		caps := wd.Capabilities{"browserName": cfg.Browser}
		caps.AddChrome(chrome.Capabilities{Args: args, W3C: true})
		return caps, nil
	case Edge:
		if cfg.Headless {
			args = append(args, "--headless=new")
		}
		return wd.Capabilities{
			"browserName":    "MicrosoftEdge",
			"ms:edgeOptions": map[string]interface{}{"args": args},
		}, nil
	case Firefox:
		var ffArgs []string
		if cfg.Headless {
			ffArgs = append(ffArgs, "-headless")
		}
		caps := wd.Capabilities{"browserName": Firefox}
		caps.AddFirefox(firefox.Capabilities{Args: ffArgs})
		return caps, nil
	case Safari:
		return wd.Capabilities{"browserName": Safari}, nil
	case IE:
		return wd.Capabilities{"browserName": "internet explorer"}, nil
	}
	return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedEngine, cfg.Browser)
}

// NewRemote opens a session on a Selenium server or grid.
func NewRemote(cfg Config, log output.LoggerPort) (*Adapter, error) {
	caps, err := Capabilities(cfg)
	if err != nil {
		return nil, err
	}
	remote, err := wd.NewRemote(caps, cfg.ServerURI)
	if err != nil {
		return nil, entity.NewDriverError("new remote session", err)
	}
	return NewAdapter(remote, nil, log), nil
}

// NewLocal starts the browser's driver executable and opens a session on it.
// Safari and Internet Explorer are only reachable through a server.
func NewLocal(cfg Config, log output.LoggerPort) (*Adapter, error) {
	caps, err := Capabilities(cfg)
	if err != nil {
		return nil, err
	}
	name, ok := driverExecutables[cfg.Browser]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no local driver service, use remote mode", entity.ErrUnsupportedEngine, cfg.Browser)
	}

	path := DriverPath(cfg.DriversPath, name)
	port, err := freePort()
	if err != nil {
		return nil, entity.NewDriverError("reserve port", err)
	}

	var service *wd.Service
	var urlPrefix string
	if cfg.Browser == Firefox {
		service, err = wd.NewGeckoDriverService(path, port)
		urlPrefix = fmt.Sprintf("http://localhost:%d", port)
	} else {
		service, err = wd.NewChromeDriverService(path, port)
		urlPrefix = fmt.Sprintf("http://localhost:%d/wd/hub", port)
	}
	if err != nil {
		return nil, entity.NewDriverError("start "+name, err)
	}

	session, err := wd.NewRemote(caps, urlPrefix)
	if err != nil {
		_ = service.Stop()
		return nil, entity.NewDriverError("new session", err)
	}
	return NewAdapter(session, service, log), nil
}

var driverExecutables = map[string]string{
	Chrome:  "chromedriver",
	Opera:   "operadriver",
	Edge:    "msedgedriver",
	Firefox: "geckodriver",
}

// DriverPath resolves the executable inside dir; a dir that is itself a file
// is returned as is.
func DriverPath(dir, executable string) string {
	if dir == "" {
		return executable
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return dir
	}
	if runtime.GOOS == "windows" {
		executable += ".exe"
	}
	return filepath.Join(dir, executable)
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
