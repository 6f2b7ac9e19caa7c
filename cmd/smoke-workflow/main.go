// Command smoke-workflow drives one application through the review workflow
// against a running API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"orphanadmin/internal/application"
	"orphanadmin/internal/auth"
	"orphanadmin/internal/query"
	"orphanadmin/internal/remote"
)

func main() {
	base := flag.String("base-url", envOr("ORPHAN_SMOKE_BASE_URL", "http://localhost:8080"), "API base URL")
	timeout := flag.Duration("timeout", 10*time.Second, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *base); err != nil {
		fmt.Fprintln(os.Stderr, "smoke test failed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, base string) error {
	client, err := remote.New(base, remote.Options{RatePerSec: 5, Burst: 5})
	if err != nil {
		return err
	}

	agent, err := token(ctx, base, "smoke-agent", "agent")
	if err != nil {
		return err
	}
	reviewer, err := token(ctx, base, "smoke-reviewer", "authenticator")
	if err != nil {
		return err
	}
	asAgent := auth.ContextWithToken(ctx, agent)
	asReviewer := auth.ContextWithToken(ctx, reviewer)

	stamp := time.Now().UTC().Format("150405")
	app, err := client.CreateApplication(asAgent, application.Draft{
		PrimaryInformation: application.PrimaryInformation{
			FullName:       "Smoke Child " + stamp,
			FatherName:     "Smoke Father",
			DateOfBirth:    "2013-05-05",
			Gender:         application.GenderFemale,
			BCRegistration: "BC-SMOKE-" + stamp,
		},
		Address:  application.Address{District: "Dhaka", SubDistrict: "Gulshan", ResidenceStatus: application.ResidencePermanent},
		Guardian: application.Guardian{Name: "Smoke Guardian", Phone: "01700000000"},
		Submit:   true,
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if app.Status != application.StatusPending {
		return fmt.Errorf("create: expected PENDING, got %s", app.Status)
	}

	err = client.UpdateApplicationStatus(asReviewer, app.ID, application.StatusGranted, "")
	if !errors.Is(err, application.ErrInvalidTransition) {
		return fmt.Errorf("PENDING -> GRANTED: expected invalid transition, got %v", err)
	}
	for _, target := range []application.Status{application.StatusAccepted, application.StatusGranted} {
		if err := client.UpdateApplicationStatus(asReviewer, app.ID, target, ""); err != nil {
			return fmt.Errorf("change to %s: %w", target, err)
		}
	}

	page, err := client.ListApplications(asReviewer, query.SetFilter(query.Default(), query.FilterID, app.ID))
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if page.TotalElements != 1 || page.Content[0].Status != application.StatusGranted {
		return fmt.Errorf("list: expected one GRANTED row, got %+v", page)
	}

	if err := client.DeleteApplication(asAgent, app.ID); err == nil {
		return errors.New("delete of a granted application succeeded")
	}

	fmt.Printf("smoke workflow passed: application=%s\n", app.ID)
	return nil
}

func token(ctx context.Context, base, user string, roles ...string) (string, error) {
	body, _ := json.Marshal(map[string]any{"user": user, "roles": roles})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token: unexpected status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	return out.Token, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
