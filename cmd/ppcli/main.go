package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"proxypool/internal/client"
	"proxypool/internal/notify"
	"proxypool/internal/rotator"
	"proxypool/internal/store"
)

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	if err := godotenv.Load(getenvDefault("ENV_FILE", ".env")); err != nil && !os.IsNotExist(err) {
		log.Printf("skip .env: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "serve" {
		runServer()
		return
	}
	runCLI(os.Args[1:])
}

func runServer() {
	listenAddr := getenvDefault("LISTEN_ADDR", ":8080")
	configPath := getenvDefault("CONFIG_FILE", "clients-config.json")

	apiUser := getenvDefault("API_USERNAME", "telegram_bot")
	apiPass := os.Getenv("API_PASSWORD")
	if apiPass == "" {
		apiPass = "bot_secret_2024"
		log.Println("WARNING: API_PASSWORD not set, using default (change it in production)")
	}

	egressTimeout := 10 * time.Second
	if v := os.Getenv("EGRESS_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			egressTimeout = time.Duration(n) * time.Second
		}
	}

	var history *store.History
	var err error
	if dsn := os.Getenv("HISTORY_MYSQL_DSN"); dsn != "" {
		history, err = store.Open(dsn)
	} else if path := os.Getenv("HISTORY_SQLITE"); path != "" {
		history, err = store.OpenSQLite(path)
	}
	if err != nil {
		log.Fatalf("open history store: %v", err)
	}
	if history != nil {
		defer history.Close()
	}

	var channels []notify.Channel
	if url := os.Getenv("NOTIFY_WEBHOOK_URL"); url != "" {
		ch, err := notify.NewWebhookChannel(url)
		if err != nil {
			log.Fatalf("notify webhook: %v", err)
		}
		channels = append(channels, ch)
	}
	var notifier *notify.Manager
	if len(channels) > 0 {
		notifier = notify.NewManager(channels)
		defer notifier.Stop()
	}

	srv, err := rotator.NewBuilder().
		WithListenAddr(listenAddr).
		WithConfigPath(configPath).
		WithAPICredentials(apiUser, apiPass).
		WithIPEchoURL(os.Getenv("IP_ECHO_URL")).
		WithEgressTimeout(egressTimeout).
		WithSweepSchedule(os.Getenv("SWEEP_SCHEDULE")).
		WithHistory(history).
		WithNotifier(notifier).
		Build()
	if err != nil {
		log.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  ppcli serve                               run the proxy pool server
  ppcli list                                list clients
  ppcli status                              show server status
  ppcli add-client <name> <password> [proxy...]
  ppcli delete-client <name>
  ppcli add-proxy <name> <proxy>
  ppcli remove-proxy <name> <proxy>
  ppcli rotate <name>

environment: POOL_SERVER_URL, POOL_API_USERNAME, POOL_API_PASSWORD`)
	os.Exit(2)
}

func runCLI(args []string) {
	if len(args) == 0 {
		usage()
	}

	cfg, err := client.LoadConfig()
	if err != nil {
		// status 端点无鉴权，允许只给地址。
		if args[0] != "status" {
			log.Fatal(err)
		}
		cfg = client.Config{BaseURL: strings.TrimRight(getenvDefault("POOL_SERVER_URL", "http://localhost:8080"), "/")}
	}
	c := client.New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "list":
		resp, err := c.ListClients(ctx)
		if err != nil {
			log.Fatal(err)
		}
		names := make([]string, 0, len(resp.Clients))
		for name := range resp.Clients {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			info := resp.Clients[name]
			fmt.Printf("%-24s proxies=%-4d cursor=%d\n", name, info.Proxies, info.CurrentIndex)
		}
		fmt.Printf("total: %d clients, %d proxies\n", resp.TotalClients, resp.TotalProxies)

	case "status":
		resp, err := c.Status(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("status=%s clients=%d proxies=%d blocked=%d uptime=%ds version=%s\n",
			resp.Status, resp.Clients, resp.Proxies, resp.Blocked, resp.Uptime, resp.Version)

	case "add-client":
		if len(args) < 3 {
			usage()
		}
		resp, err := c.AddClient(ctx, args[1], args[2], args[3:])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s (%d proxies, %d clients total)\n", resp.Message, resp.ValidProxies, resp.TotalClients)

	case "delete-client":
		if len(args) != 2 {
			usage()
		}
		resp, err := c.DeleteClient(ctx, args[1])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s (%d proxies removed)\n", resp.Message, resp.DeletedProxies)

	case "add-proxy":
		if len(args) != 3 {
			usage()
		}
		resp, err := c.AddProxy(ctx, args[1], args[2])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s (%d proxies)\n", resp.Message, resp.TotalProxies)

	case "remove-proxy":
		if len(args) != 3 {
			usage()
		}
		resp, err := c.RemoveProxy(ctx, args[1], args[2])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s (removed %s, %d left)\n", resp.Message, resp.RemovedProxy, resp.TotalProxies)

	case "rotate":
		if len(args) != 2 {
			usage()
		}
		resp, err := c.RotateClient(ctx, args[1])
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("rotated %s to index %d/%d: %s\n", resp.ClientName, resp.CurrentIndex, resp.TotalProxies, resp.CurrentProxy)

	default:
		if strings.HasPrefix(args[0], "-") {
			usage()
		}
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		usage()
	}
}
