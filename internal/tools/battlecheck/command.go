package battlecheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/poetry-royal/mefil/internal/tools/common"
	"github.com/poetry-royal/mefil/internal/tools/loadgen"
	"github.com/poetry-royal/mefil/internal/tools/ui"
)

type options struct {
	baseURL        string
	belalPassword  string
	rutbahPassword string
	traffic        bool
	ci             bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "battlecheck", Short: "Verify the shared battle state end to end"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:5070", "API base URL")
	cmd.PersistentFlags().StringVar(&opts.belalPassword, "belal-password", os.Getenv("MEFIL_BELAL_PASSWORD"), "belal login secret")
	cmd.PersistentFlags().StringVar(&opts.rutbahPassword, "rutbah-password", os.Getenv("MEFIL_RUTBAH_PASSWORD"), "rutbah login secret")
	cmd.PersistentFlags().BoolVar(&opts.traffic, "traffic", false, "generate a short polling burst before the checks")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Log in both roles, attack once and verify both views converge",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "battlecheck run", func(ctx context.Context) ([]string, error) {
				return checkBattle(ctx, opts)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "battlecheck run", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func checkBattle(ctx context.Context, opts *options) ([]string, error) {
	var details []string

	if opts.traffic {
		lgRes, err := loadgen.Run(ctx, loadgen.Config{
			BaseURL:     opts.baseURL,
			Profile:     "state",
			Duration:    5 * time.Second,
			RPS:         10,
			Concurrency: 2,
			Seed:        42,
			Passwords: map[string]string{
				"belal":  opts.belalPassword,
				"rutbah": opts.rutbahPassword,
			},
		})
		if err != nil {
			return details, err
		}
		details = append(details, fmt.Sprintf("traffic generated total=%d failures=%d", lgRes.TotalRequests, lgRes.Failures))
	}

	belal, err := login(ctx, opts.baseURL, "belal", opts.belalPassword)
	if err != nil {
		return details, err
	}
	rutbah, err := login(ctx, opts.baseURL, "rutbah", opts.rutbahPassword)
	if err != nil {
		return details, err
	}
	details = append(details, "both roles logged in")

	before, err := belal.state(ctx)
	if err != nil {
		return details, err
	}
	rutbahBefore, err := rutbah.state(ctx)
	if err != nil {
		return details, err
	}
	if before.Version != rutbahBefore.Version || before.Quest.BossHP != rutbahBefore.Quest.BossHP {
		return details, fmt.Errorf("views diverge before attack: versions %d/%d boss hp %d/%d",
			before.Version, rutbahBefore.Version, before.Quest.BossHP, rutbahBefore.Quest.BossHP)
	}
	details = append(details, fmt.Sprintf("shared view converged at version=%d boss_hp=%d", before.Version, before.Quest.BossHP))

	after, err := belal.post(ctx, "/api/mefil/attack")
	if err != nil {
		return details, err
	}
	if after.Quest.BossHP >= before.Quest.BossHP && before.Quest.BossHP > 0 {
		return details, fmt.Errorf("attack did not reduce boss hp: %d -> %d", before.Quest.BossHP, after.Quest.BossHP)
	}
	if after.Version <= before.Version {
		return details, fmt.Errorf("attack did not bump version: %d -> %d", before.Version, after.Version)
	}
	details = append(details, fmt.Sprintf("attack landed boss_hp=%d version=%d", after.Quest.BossHP, after.Version))

	rutbahAfter, err := rutbah.state(ctx)
	if err != nil {
		return details, err
	}
	if rutbahAfter.Quest.BossHP != after.Quest.BossHP {
		return details, fmt.Errorf("partner sees boss hp %d, attacker sees %d", rutbahAfter.Quest.BossHP, after.Quest.BossHP)
	}
	details = append(details, "partner view converged after attack")

	code, err := belal.expectRejection(ctx, "/api/mefil/pomodoro/complete-attack")
	if err != nil {
		return details, err
	}
	if code != "TIMER_NOT_COMPLETE" && code != "QUEST_NOT_ACTIVE" {
		return details, fmt.Errorf("unexpected rejection code %q for premature complete-attack", code)
	}
	details = append(details, "premature complete-attack rejected with "+code)

	return details, nil
}

type stateView struct {
	Quest struct {
		BossHP int    `json:"boss_hp"`
		TeamHP int    `json:"team_hp"`
		Status string `json:"status"`
	} `json:"quest"`
	Version int64 `json:"version"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiClient struct {
	role    string
	baseURL string
	client  *http.Client
}

func login(ctx context.Context, baseURL, role, password string) (*apiClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &apiClient{role: role, baseURL: baseURL, client: &http.Client{Jar: jar, Timeout: 15 * time.Second}}
	body, err := json.Marshal(map[string]string{"role": role, "password": password})
	if err != nil {
		return nil, err
	}
	env, status, err := c.do(ctx, http.MethodPost, "/api/mefil/auth/login", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !env.Success {
		return nil, fmt.Errorf("login %s failed with status %d", role, status)
	}
	return c, nil
}

func (c *apiClient) state(ctx context.Context) (*stateView, error) {
	env, status, err := c.do(ctx, http.MethodGet, "/api/mefil/state", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("state returned status %d for %s", status, c.role)
	}
	var view stateView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *apiClient) post(ctx context.Context, path string) (*stateView, error) {
	env, status, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d for %s", path, status, c.role)
	}
	var view stateView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// expectRejection returns the error code of a request that must not succeed.
func (c *apiClient) expectRejection(ctx context.Context, path string) (string, error) {
	env, status, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return "", err
	}
	if status == http.StatusOK {
		return "", fmt.Errorf("%s unexpectedly succeeded", path)
	}
	if env.Error == nil {
		return "", fmt.Errorf("%s returned status %d without an error body", path, status)
	}
	return env.Error.Code, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body []byte) (*envelope, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return &env, resp.StatusCode, nil
}
