// Package surface drives the remote browser-hosted generative page that
// answers questions about the loaded content. It owns the Chrome instance and
// exposes only the narrow operations the session layer needs: submit a
// question, observe the latest rendered text, resubmit. How the page renders
// or when it finishes is deliberately not its problem.
package surface

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const uploadInputID = "paperlens-upload-input"

// Config holds browser and page settings for the driven surface.
type Config struct {
	URL               string
	InputSelector     string
	ChunkSelector     string
	RunButtonSelector string
	NavigationTimeout time.Duration

	Bin        string // chrome binary; empty uses the launcher default
	ProfileDir string // user data dir keeping the page's login state
	DebugPort  int
	Headless   bool
}

// DefaultConfig returns sensible defaults for the AI Studio layout.
func DefaultConfig() Config {
	return Config{
		URL:               "https://aistudio.google.com/prompts/new_chat",
		InputSelector:     "textarea.cdk-textarea-autosize",
		ChunkSelector:     "ms-text-chunk",
		RunButtonSelector: "ms-run-button button",
		NavigationTimeout: 30 * time.Second,
		DebugPort:         9222,
	}
}

// Studio controls one Chrome tab on the generative page.
type Studio struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
	logger  *zap.Logger
}

// New creates a studio controller. A nil logger is replaced with a no-op one.
func New(cfg Config, logger *zap.Logger) *Studio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Studio{cfg: cfg, logger: logger}
}

// Open launches or attaches Chrome and navigates to the configured page.
func (s *Studio) Open(ctx context.Context) error {
	launch := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.Bin != "" {
		launch = launch.Bin(s.cfg.Bin)
	}
	if s.cfg.ProfileDir != "" {
		if _, err := os.Stat(s.cfg.ProfileDir); err == nil {
			launch = launch.UserDataDir(s.cfg.ProfileDir)
		} else {
			s.logger.Warn("chrome profile dir not found, using a temporary profile",
				zap.String("dir", s.cfg.ProfileDir))
		}
	}
	if s.cfg.DebugPort > 0 {
		launch = launch.Set(flags.RemoteDebuggingPort, strconv.Itoa(s.cfg.DebugPort))
	}

	controlURL, err := launch.Launch()
	if err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: s.cfg.URL})
	if err != nil {
		_ = browser.Close()
		s.browser = nil
		return fmt.Errorf("open page: %w", err)
	}
	if err := page.Timeout(s.cfg.NavigationTimeout).WaitLoad(); err != nil {
		s.logger.Warn("page load wait ended early", zap.Error(err))
	}
	s.page = page

	s.logger.Info("surface ready", zap.String("url", s.cfg.URL))
	return nil
}

// UploadFile delivers a local file to the page by synthesizing a drag-drop.
// The page has no stable file input, so a hidden one is injected, filled via
// CDP, and its files handed to the prompt area through DataTransfer events.
func (s *Studio) UploadFile(ctx context.Context, path string) error {
	if s.page == nil {
		return fmt.Errorf("surface not open")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("content file: %w", err)
	}

	_, err = s.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		(id) => {
			const input = document.createElement('input');
			input.type = 'file';
			input.id = id;
			input.style.display = 'none';
			document.body.appendChild(input);
			return true;
		}
		`,
		JSArgs:  []interface{}{uploadInputID},
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("inject file input: %w", err)
	}

	input, err := s.page.Context(ctx).Element("#" + uploadInputID)
	if err != nil {
		return fmt.Errorf("locate injected input: %w", err)
	}
	if err := input.SetFiles([]string{abs}); err != nil {
		return fmt.Errorf("set files: %w", err)
	}

	_, err = s.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		(inputId, targetSel) => {
			const input = document.getElementById(inputId);
			const target = document.querySelector(targetSel) || document.body;
			const dt = new DataTransfer();
			for (const f of input.files) {
				dt.items.add(f);
			}
			for (const type of ['dragenter', 'dragover', 'drop']) {
				target.dispatchEvent(new DragEvent(type, {
					bubbles: true,
					cancelable: true,
					dataTransfer: dt
				}));
			}
			input.remove();
			return true;
		}
		`,
		JSArgs:  []interface{}{uploadInputID, s.cfg.InputSelector},
		ByValue: true,
	})
	if err != nil {
		return fmt.Errorf("dispatch drop: %w", err)
	}

	// The page processes the drop asynchronously with no signal to wait on.
	time.Sleep(3 * time.Second)
	s.logger.Info("content file delivered", zap.String("file", filepath.Base(abs)))
	return nil
}

// SubmitURL hands a link to the page by typing it as a prompt. The page
// fetches linked content itself.
func (s *Studio) SubmitURL(ctx context.Context, url string) error {
	return s.Submit(ctx, url)
}

// Submit types a question into the prompt area and clicks run.
func (s *Studio) Submit(ctx context.Context, question string) error {
	if s.page == nil {
		return fmt.Errorf("surface not open")
	}

	input, err := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout).Element(s.cfg.InputSelector)
	if err != nil {
		return fmt.Errorf("prompt input not found: %w", err)
	}

	_, _ = s.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		(sel) => {
			const el = document.querySelector(sel);
			if (el) el.value = '';
			return true;
		}
		`,
		JSArgs:  []interface{}{s.cfg.InputSelector},
		ByValue: true,
	})

	if err := input.Input(question); err != nil {
		return fmt.Errorf("type question: %w", err)
	}

	if err := s.clickRun(ctx); err != nil {
		return err
	}
	s.logger.Debug("question submitted", zap.Int("len", len(question)))
	return nil
}

// Resubmit re-clicks the run button; the detector uses this as its one-shot
// recovery when nothing ever renders.
func (s *Studio) Resubmit(ctx context.Context) error {
	if s.page == nil {
		return fmt.Errorf("surface not open")
	}
	s.logger.Warn("resubmitting request")
	return s.clickRun(ctx)
}

// clickRun finds the run button by the configured selector, falling back to a
// text scan over all buttons when the page layout shifts.
func (s *Studio) clickRun(ctx context.Context) error {
	if btn := s.findRun(ctx, s.cfg.RunButtonSelector); btn != nil {
		return btn.Click(proto.InputMouseButtonLeft, 1)
	}
	if btn := s.findRun(ctx, "button"); btn != nil {
		return btn.Click(proto.InputMouseButtonLeft, 1)
	}
	return fmt.Errorf("run button not found")
}

func (s *Studio) findRun(ctx context.Context, selector string) *rod.Element {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil
	}
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "run") && !strings.Contains(lower, "gemini") {
			return el
		}
	}
	return nil
}

// LatestText reads the innerText of the newest response chunk. Readings may
// be stale, partial, or empty; any failure degrades to "" rather than an
// error, because the detector treats absence as just another poll.
func (s *Studio) LatestText(ctx context.Context) string {
	if s.page == nil {
		return ""
	}

	res, err := s.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS: `
		(sel) => {
			window.scrollTo(0, document.body.scrollHeight);
			const chunks = document.querySelectorAll(sel);
			if (!chunks.length) return "";
			return chunks[chunks.length - 1].innerText || "";
		}
		`,
		JSArgs:  []interface{}{s.cfg.ChunkSelector},
		ByValue: true,
	})
	if err != nil || res == nil || res.Value.Nil() {
		return ""
	}
	return strings.TrimSpace(res.Value.String())
}

// Close releases the tab and the browser. Safe to call at any point.
func (s *Studio) Close() error {
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	return err
}
