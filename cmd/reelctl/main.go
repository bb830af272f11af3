// reelctl is a small operator CLI for a running reeltrip API.
//
// Usage:
//
//	reelctl fetch <reel-url>
//	reelctl refresh <reel-url>
//	reelctl get <identity>
//	reelctl list [-limit N]
//	reelctl delete <identity>
//	reelctl video-url <identity>
//	reelctl plan [-prefs JSON] <reel-url>
//
// The API base URL comes from REELTRIP_API (default http://localhost:8000).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/voyago/reeltrip/common/clients"
	"github.com/voyago/reeltrip/common/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		usage()
		return
	}

	log := logger.New("error", "text")
	httpClient := clients.NewHTTPClient(&http.Client{Timeout: 2 * time.Minute}, log)
	api := clients.NewReelTripClient(httpClient, apiBaseURL())
	ctx := clients.WithClientID(context.Background(), clientID())

	if err := run(ctx, api, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "reelctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, api *clients.ReelTripClient, cmd string, args []string) error {
	switch cmd {
	case "fetch":
		return runFetch(ctx, api, args)
	case "refresh":
		return runRefresh(ctx, api, args)
	case "get":
		return runGet(ctx, api, args)
	case "list":
		return runList(ctx, api, args)
	case "delete":
		return runDelete(ctx, api, args)
	case "video-url":
		return runVideoURL(ctx, api, args)
	case "plan":
		return runPlan(ctx, api, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runFetch(ctx context.Context, api *clients.ReelTripClient, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reelctl fetch <reel-url>")
	}
	resp, err := api.FetchReel(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runRefresh(ctx context.Context, api *clients.ReelTripClient, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reelctl refresh <reel-url>")
	}
	resp, err := api.RefreshReel(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runGet(ctx context.Context, api *clients.ReelTripClient, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reelctl get <identity>")
	}
	record, err := api.GetReel(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(record)
}

func runList(ctx context.Context, api *clients.ReelTripClient, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "maximum number of reels to return (0 uses the server default)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := api.ListReels(ctx, *limit)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runDelete(ctx context.Context, api *clients.ReelTripClient, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reelctl delete <identity>")
	}
	if err := api.DeleteReel(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func runVideoURL(ctx context.Context, api *clients.ReelTripClient, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: reelctl video-url <identity>")
	}
	resp, err := api.VideoURL(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runPlan(ctx context.Context, api *clients.ReelTripClient, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	prefsJSON := fs.String("prefs", "", `traveler preferences as JSON, e.g. '{"duration": "5 days"}'`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: reelctl plan [-prefs JSON] <reel-url>")
	}

	var preferences map[string]interface{}
	if *prefsJSON != "" {
		if err := json.Unmarshal([]byte(*prefsJSON), &preferences); err != nil {
			return fmt.Errorf("invalid -prefs JSON: %w", err)
		}
	}

	resp, err := api.GenerateItinerary(ctx, fs.Arg(0), preferences)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func apiBaseURL() string {
	if url := os.Getenv("REELTRIP_API"); url != "" {
		return url
	}
	return "http://localhost:8000"
}

func clientID() string {
	if id := os.Getenv("REELTRIP_CLIENT_ID"); id != "" {
		return id
	}
	return "reelctl"
}

func usage() {
	fmt.Println("reelctl - operate a reeltrip API")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  fetch <reel-url>              cache the reel (scrapes on a miss)")
	fmt.Println("  refresh <reel-url>            re-scrape and report what changed")
	fmt.Println("  get <identity>                show a cached reel")
	fmt.Println("  list [-limit N]               list cached reels")
	fmt.Println("  delete <identity>             drop a reel and its stored video")
	fmt.Println("  video-url <identity>          resolve a playable video location")
	fmt.Println("  plan [-prefs JSON] <reel-url> build an itinerary from the reel")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  REELTRIP_API        API base URL (default http://localhost:8000)")
	fmt.Println("  REELTRIP_CLIENT_ID  client id sent with each request (default reelctl)")
}
