package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type summaryEnvelope struct {
	Data  *dto.CollectionSummary `json:"data"`
	Error map[string]interface{} `json:"error"`
}

func main() {
	var (
		base        string
		compareBase string
		token       string
		hostels     string
		semester    string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&compareBase, "compare-base", "", "Second deployment to diff totals against")
	flag.StringVar(&token, "token", os.Getenv("AUDIT_TOKEN"), "Bearer token with the accountant role")
	flag.StringVar(&hostels, "hostels", "", "Comma separated hostel ids")
	flag.StringVar(&semester, "semester", "", "Semester id, defaults to each hostel's current semester")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	ids := splitIDs(hostels)
	if len(ids) == 0 {
		log.Fatal("at least one hostel id is required")
	}

	client := resty.New().SetTimeout(timeout).SetAuthToken(token)

	var breaking int
	for _, hostelID := range ids {
		summary, err := fetchSummary(client, base, hostelID, semester)
		if err != nil {
			fmt.Printf("[ERROR] %s: %v\n", hostelID, err)
			breaking++
			continue
		}
		findings := Audit(summary)
		if compareBase != "" {
			other, err := fetchSummary(client, compareBase, hostelID, semester)
			if err != nil {
				findings = append(findings, fmt.Sprintf("compare request failed: %v", err))
			} else {
				findings = append(findings, Diff(summary, other)...)
			}
		}
		printReport(hostelID, summary, findings)
		if len(findings) > 0 {
			breaking++
		}
	}

	fmt.Printf("Hostels audited: %d, with findings: %d\n", len(ids), breaking)
	if breaking > 0 {
		os.Exit(1)
	}
}

func fetchSummary(client *resty.Client, base, hostelID, semester string) (*dto.CollectionSummary, error) {
	var envelope summaryEnvelope
	req := client.R().SetQueryParam("hostelId", hostelID).SetResult(&envelope).SetError(&response.Envelope{})
	if semester != "" {
		req.SetQueryParam("semesterId", semester)
	}
	resp, err := req.Get(strings.TrimRight(base, "/") + "/collections/summary")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("empty summary")
	}
	return envelope.Data, nil
}

func printReport(hostelID string, summary *dto.CollectionSummary, findings []string) {
	status := "OK"
	if len(findings) > 0 {
		status = "MISMATCH"
	}
	fmt.Printf("[%s] %s semester=%s expected=%s collected=%s outstanding=%s dedup=%s\n",
		status, hostelID, summary.SemesterID,
		summary.TotalExpected.StringFixed(2), summary.TotalCollected.StringFixed(2),
		summary.TotalOutstanding.StringFixed(2), summary.DedupMode)
	for _, gap := range summary.Gaps {
		fmt.Printf("    gap: %s\n", gap)
	}
	for _, finding := range findings {
		fmt.Printf("    - %s\n", finding)
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
