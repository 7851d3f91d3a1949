package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devfolio/devfolio-server/internal/security"
	"github.com/devfolio/devfolio-server/internal/tools/common"
	"github.com/devfolio/devfolio-server/internal/tools/loadgen"
	"github.com/devfolio/devfolio-server/internal/tools/ui"
)

type options struct {
	baseURL string
	ci      bool
}

// NewRootCommand builds the smoke tool: an end-to-end probe that walks the
// signup, login, refresh, rotation replay and search paths of a live server.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "smoke", Short: "Probe a running server end to end"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts), newLoadCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Exercise the auth and search flows against --base-url",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "smoke run", func(ctx context.Context) ([]string, error) {
				return probe(ctx, opts.baseURL)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "smoke run", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func newLoadCommand(opts *options) *cobra.Command {
	var (
		profile     string
		duration    time.Duration
		rps         int
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Generate synthetic traffic against --base-url",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "smoke load", func(ctx context.Context) ([]string, error) {
				res, err := loadgen.Run(ctx, loadgen.Config{
					BaseURL:     opts.baseURL,
					Profile:     profile,
					Duration:    duration,
					RPS:         rps,
					Concurrency: concurrency,
					Seed:        42,
				})
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("total=%d failures=%d", res.TotalRequests, res.Failures)}
				for class, n := range res.StatusClasses {
					details = append(details, fmt.Sprintf("%s=%d", class, n))
				}
				if res.Failures > 0 {
					return details, fmt.Errorf("%d requests failed", res.Failures)
				}
				return details, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "smoke load", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "mixed", "traffic profile: mixed, auth or search")
	cmd.Flags().DurationVar(&duration, "duration", 6*time.Second, "how long to generate traffic")
	cmd.Flags().IntVar(&rps, "rps", 20, "requests per second")
	cmd.Flags().IntVar(&concurrency, "concurrency", 6, "concurrent workers")
	return cmd
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

type session struct {
	accessToken  string
	refreshToken string
	tokenID      string
}

func probe(ctx context.Context, baseURL string) ([]string, error) {
	client := &http.Client{Timeout: 20 * time.Second}
	var details []string

	loginID := fmt.Sprintf("smoke%d", time.Now().UnixNano()%1_000_000_000)
	password := "smoke-password-1"

	status, _, _, err := call(ctx, client, baseURL, http.MethodPost, "/api/auth/signup", nil,
		fmt.Sprintf(`{"login_id":%q,"password":%q,"email":"%s@example.com","nickname":"Smoke"}`, loginID, password, loginID))
	if err != nil {
		return details, err
	}
	if status != http.StatusCreated {
		return details, fmt.Errorf("signup: unexpected status %d", status)
	}
	details = append(details, "signup: ok ("+loginID+")")

	status, body, cookies, err := call(ctx, client, baseURL, http.MethodPost, "/api/auth/login", nil,
		fmt.Sprintf(`{"login_id":%q,"password":%q}`, loginID, password))
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("login: unexpected status %d", status)
	}
	sess, err := sessionFrom(body, cookies)
	if err != nil {
		return details, fmt.Errorf("login: %w", err)
	}
	details = append(details, "login: ok")

	status, _, _, err = call(ctx, client, baseURL, http.MethodGet, "/api/me",
		map[string]string{"Cookie": security.AccessTokenCookie + "=" + sess.accessToken}, "")
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("me: unexpected status %d", status)
	}
	details = append(details, "authenticated request: ok")

	refreshHeaders := map[string]string{
		security.TokenIDHeader: sess.tokenID,
		"Cookie":               security.RefreshTokenCookie + "=" + sess.refreshToken,
	}
	status, body, cookies, err = call(ctx, client, baseURL, http.MethodPost, "/api/auth/refresh", refreshHeaders, "")
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("refresh: unexpected status %d", status)
	}
	rotated, err := sessionFrom(body, cookies)
	if err != nil {
		return details, fmt.Errorf("refresh: %w", err)
	}
	details = append(details, "refresh: ok")

	// The consumed credential must be dead after rotation.
	status, _, _, err = call(ctx, client, baseURL, http.MethodPost, "/api/auth/refresh", refreshHeaders, "")
	if err != nil {
		return details, err
	}
	if status != http.StatusUnauthorized {
		return details, fmt.Errorf("refresh replay: expected 401, got %d", status)
	}
	details = append(details, "rotation replay rejected: ok")

	status, _, _, err = call(ctx, client, baseURL, http.MethodGet, "/api/community/search?keyword=go", nil, "")
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("search: unexpected status %d", status)
	}
	details = append(details, "anonymous search: ok")

	status, _, _, err = call(ctx, client, baseURL, http.MethodPost, "/api/auth/logout",
		map[string]string{
			"Cookie":               security.AccessTokenCookie + "=" + rotated.accessToken,
			security.TokenIDHeader: rotated.tokenID,
		}, "")
	if err != nil {
		return details, err
	}
	if status != http.StatusOK {
		return details, fmt.Errorf("logout: unexpected status %d", status)
	}
	details = append(details, "logout: ok")
	return details, nil
}

func call(ctx context.Context, client *http.Client, baseURL, method, path string, headers map[string]string, body string) (int, []byte, []*http.Cookie, error) {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(baseURL, "/")+path, rd)
	if err != nil {
		return 0, nil, nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, payload, resp.Cookies(), nil
}

func sessionFrom(body []byte, cookies []*http.Cookie) (session, error) {
	var envelope struct {
		Data struct {
			TokenID string `json:"token_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return session{}, fmt.Errorf("decode response: %w", err)
	}
	sess := session{tokenID: envelope.Data.TokenID}
	for _, c := range cookies {
		switch c.Name {
		case security.AccessTokenCookie:
			sess.accessToken = c.Value
		case security.RefreshTokenCookie:
			sess.refreshToken = c.Value
		}
	}
	if sess.tokenID == "" || sess.accessToken == "" || sess.refreshToken == "" {
		return session{}, fmt.Errorf("incomplete session: token_id=%q at=%t rt=%t",
			sess.tokenID, sess.accessToken != "", sess.refreshToken != "")
	}
	return sess, nil
}
