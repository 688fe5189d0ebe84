package main

import (
	"context"
	"encoding/xml"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// callsim plays the telephony platform against a running bridge: it opens a
// call, posts scripted utterances as speech results, follows every redirect
// and reports per-turn latency.

type options struct {
	baseURL        string
	prefix         string
	turns          int
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

type voiceResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Says     []string `xml:"Say"`
	Gather   *gather  `xml:"Gather"`
	Redirect *struct {
		Method string `xml:"method,attr"`
		URL    string `xml:",chardata"`
	} `xml:"Redirect"`
}

type gather struct {
	Input  string `xml:"input,attr"`
	Action string `xml:"action,attr"`
}

type report struct {
	CallSid   string
	Turns     int
	Latencies []time.Duration
}

var defaultUtterances = []string{
	"Hi, do you have tent sites available?",
	"I need a tent site for 2 nights",
	"Two adults and a dog.",
	"How much is the pet fee?",
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "callsim: %v\n", err)
		os.Exit(2)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()

	rep, err := run(ctx, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "callsim: %v\n", err)
		os.Exit(1)
	}
	printSummary(os.Stdout, rep)
}

func parseFlags(args []string) (options, error) {
	var cfg options
	var textsRaw string
	var interTurnMS int
	var turnTimeoutMS int

	fs := flag.NewFlagSet("callsim", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:3000", "bridge base URL")
	fs.StringVar(&cfg.prefix, "prefix", "/api", "webhook route prefix")
	fs.IntVar(&cfg.turns, "turns", 4, "number of caller turns to replay")
	fs.IntVar(&interTurnMS, "inter-turn-ms", 0, "delay between turns in milliseconds")
	fs.IntVar(&turnTimeoutMS, "turn-timeout-ms", 15000, "timeout per webhook request in milliseconds")
	fs.StringVar(&textsRaw, "texts", "", "utterances separated by '|' (optional)")
	fs.BoolVar(&cfg.verbose, "verbose", true, "print call progress")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if _, err := url.Parse(cfg.baseURL); err != nil {
		return options{}, fmt.Errorf("base-url: %w", err)
	}
	cfg.prefix = strings.TrimRight(strings.TrimSpace(cfg.prefix), "/")
	if cfg.prefix != "" && !strings.HasPrefix(cfg.prefix, "/") {
		cfg.prefix = "/" + cfg.prefix
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if interTurnMS < 0 {
		interTurnMS = 0
	}
	if turnTimeoutMS < 1000 {
		turnTimeoutMS = 1000
	}
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond

	if strings.TrimSpace(textsRaw) == "" {
		cfg.texts = append([]string(nil), defaultUtterances...)
	} else {
		for _, part := range strings.Split(textsRaw, "|") {
			if t := strings.TrimSpace(part); t != "" {
				cfg.texts = append(cfg.texts, t)
			}
		}
		if len(cfg.texts) == 0 {
			return options{}, fmt.Errorf("texts produced no non-empty utterances")
		}
	}
	return cfg, nil
}

func run(ctx context.Context, cfg options, out io.Writer) (report, error) {
	base, err := url.Parse(cfg.baseURL + "/")
	if err != nil {
		return report{}, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return report{}, fmt.Errorf("cookie jar: %w", err)
	}
	client := &http.Client{Timeout: cfg.turnTimeout, Jar: jar}
	rep := report{CallSid: "CA" + strings.ReplaceAll(uuid.NewString(), "-", "")}

	startURL := base.ResolveReference(&url.URL{Path: cfg.prefix + "/incoming-call"}).String()
	resp, err := post(ctx, client, startURL, url.Values{"CallSid": {rep.CallSid}})
	if err != nil {
		return rep, fmt.Errorf("call start: %w", err)
	}
	if cfg.verbose {
		fmt.Fprintf(out, "callsim: call=%s greeting=%q\n", rep.CallSid, strings.Join(resp.Says, " "))
	}

	for i := 0; i < cfg.turns; i++ {
		if resp.Gather == nil || strings.TrimSpace(resp.Gather.Action) == "" {
			return rep, fmt.Errorf("turn %d: response has no speech gather", i+1)
		}
		text := cfg.texts[i%len(cfg.texts)]
		action, err := resolve(base, resp.Gather.Action)
		if err != nil {
			return rep, fmt.Errorf("turn %d: %w", i+1, err)
		}

		started := time.Now()
		reply, err := post(ctx, client, action, url.Values{"CallSid": {rep.CallSid}, "SpeechResult": {text}})
		if err != nil {
			return rep, fmt.Errorf("turn %d: %w", i+1, err)
		}
		rep.Latencies = append(rep.Latencies, time.Since(started))
		rep.Turns++
		if cfg.verbose {
			fmt.Fprintf(out, "callsim: turn=%d caller=%q assistant=%q latency=%s\n",
				i+1, text, strings.Join(reply.Says, " "), rep.Latencies[i].Round(time.Millisecond))
		}

		if reply.Redirect == nil || strings.TrimSpace(reply.Redirect.URL) == "" {
			return rep, fmt.Errorf("turn %d: reply has no redirect", i+1)
		}
		next, err := resolve(base, reply.Redirect.URL)
		if err != nil {
			return rep, fmt.Errorf("turn %d: %w", i+1, err)
		}
		resp, err = post(ctx, client, next, url.Values{"CallSid": {rep.CallSid}})
		if err != nil {
			return rep, fmt.Errorf("turn %d redirect: %w", i+1, err)
		}

		if cfg.interTurnDelay > 0 {
			select {
			case <-ctx.Done():
				return rep, ctx.Err()
			case <-time.After(cfg.interTurnDelay):
			}
		}
	}
	return rep, nil
}

func post(ctx context.Context, client *http.Client, target string, form url.Values) (voiceResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return voiceResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := client.Do(req)
	if err != nil {
		return voiceResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return voiceResponse{}, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return voiceResponse{}, fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return parseVoiceResponse(body)
}

func parseVoiceResponse(body []byte) (voiceResponse, error) {
	var doc voiceResponse
	if err := xml.Unmarshal(body, &doc); err != nil {
		return voiceResponse{}, fmt.Errorf("decode voice markup: %w", err)
	}
	if doc.Gather == nil && doc.Redirect == nil {
		return voiceResponse{}, errors.New("voice markup has neither gather nor redirect")
	}
	return doc, nil
}

func resolve(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", ref, err)
	}
	return base.ResolveReference(u).String(), nil
}

func printSummary(w io.Writer, rep report) {
	if len(rep.Latencies) == 0 {
		fmt.Fprintf(w, "callsim: call=%s no turns completed\n", rep.CallSid)
		return
	}
	sorted := append([]time.Duration(nil), rep.Latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	fmt.Fprintf(w, "callsim: call=%s turns=%d p50=%s p95=%s max=%s\n",
		rep.CallSid, rep.Turns,
		percentile(sorted, 0.50).Round(time.Millisecond),
		percentile(sorted, 0.95).Round(time.Millisecond),
		sorted[len(sorted)-1].Round(time.Millisecond),
	)
}

// percentile uses nearest-rank on an ascending slice.
func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
