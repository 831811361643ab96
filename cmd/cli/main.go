package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

func main() {
	global := flag.NewFlagSet("mangashelf", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}

	client := &http.Client{Timeout: 30 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "library":
		handleLibrary(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "categories":
		handleCategories(ctx, client, *baseURL, *tokenPath, sub, args[2:])
	case "migrate":
		handleMigrate(ctx, client, *baseURL, *tokenPath, args[1:])
	case "events":
		handleEvents(*baseURL, sub, args[2:])
	case "notify":
		handleNotify(sub, args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("registered and logged in")
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: mangashelf auth <login|register|logout>")
	}
}

func handleLibrary(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "list":
		fs := flag.NewFlagSet("library list", flag.ExitOnError)
		sourceID := fs.String("source", "", "filter by source")
		_ = fs.Parse(args)

		endpoint := baseURL + "/users/library"
		if *sourceID != "" {
			endpoint += "?source=" + url.QueryEscape(*sourceID)
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, endpoint, token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "add":
		fs := flag.NewFlagSet("library add", flag.ExitOnError)
		sourceID := fs.String("source", "", "source driver")
		entryURL := fs.String("url", "", "entry key within the source")
		title := fs.String("title", "", "title")
		favorite := fs.Bool("favorite", true, "add as favorite")
		_ = fs.Parse(args)
		if *sourceID == "" || *entryURL == "" {
			log.Fatal("source and url are required")
		}

		payload := map[string]any{
			"source_id": *sourceID,
			"url":       *entryURL,
			"title":     *title,
			"favorite":  *favorite,
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/library", token, payload, &resp); err != nil {
			log.Fatalf("add failed: %v", err)
		}
		printJSON(resp)
	case "chapters":
		fs := flag.NewFlagSet("library chapters", flag.ExitOnError)
		id := fs.Int64("id", 0, "entry id")
		_ = fs.Parse(args)
		if *id == 0 {
			log.Fatal("id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, fmt.Sprintf("%s/users/library/%d/chapters", baseURL, *id), token, nil, &resp); err != nil {
			log.Fatalf("chapters failed: %v", err)
		}
		printJSON(resp)
	case "sync":
		fs := flag.NewFlagSet("library sync", flag.ExitOnError)
		id := fs.Int64("id", 0, "entry id")
		_ = fs.Parse(args)
		if *id == 0 {
			log.Fatal("id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, fmt.Sprintf("%s/users/library/%d/sync", baseURL, *id), token, nil, &resp); err != nil {
			log.Fatalf("sync failed: %v", err)
		}
		printJSON(resp)
	case "viewer":
		fs := flag.NewFlagSet("library viewer", flag.ExitOnError)
		id := fs.Int64("id", 0, "entry id")
		mode := fs.String("mode", "", "reading mode")
		orientation := fs.String("orientation", "", "orientation")
		_ = fs.Parse(args)
		if *id == 0 {
			log.Fatal("id is required")
		}

		payload := map[string]any{}
		if *mode != "" {
			payload["reading_mode"] = *mode
		}
		if *orientation != "" {
			payload["orientation"] = *orientation
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPut, fmt.Sprintf("%s/users/library/%d/viewer", baseURL, *id), token, payload, &resp); err != nil {
			log.Fatalf("viewer failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: mangashelf library <list|add|chapters|sync|viewer>")
	}
}

func handleCategories(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "list":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/users/categories", token, nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "create":
		fs := flag.NewFlagSet("categories create", flag.ExitOnError)
		name := fs.String("name", "", "category name")
		_ = fs.Parse(args)
		if *name == "" {
			log.Fatal("name is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/categories", token, map[string]string{"name": *name}, &resp); err != nil {
			log.Fatalf("create failed: %v", err)
		}
		printJSON(resp)
	case "move":
		fs := flag.NewFlagSet("categories move", flag.ExitOnError)
		id := fs.Int64("id", 0, "category id")
		dir := fs.String("dir", "", "up or down")
		_ = fs.Parse(args)
		if *id == 0 || (*dir != "up" && *dir != "down") {
			log.Fatal("id and -dir up|down are required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPatch, fmt.Sprintf("%s/users/categories/%d/move", baseURL, *id), token, map[string]string{"dir": *dir}, &resp); err != nil {
			log.Fatalf("move failed: %v", err)
		}
		printJSON(resp)
	case "sort":
		fs := flag.NewFlagSet("categories sort", flag.ExitOnError)
		id := fs.Int64("id", 0, "category id")
		sortType := fs.String("type", "", "sort type (ALPHABETICAL, LAST_READ, ...)")
		direction := fs.String("direction", "", "ASCENDING or DESCENDING")
		_ = fs.Parse(args)
		if *id == 0 {
			log.Fatal("id is required")
		}

		payload := map[string]string{}
		if *sortType != "" {
			payload["type"] = *sortType
		}
		if *direction != "" {
			payload["direction"] = *direction
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPatch, fmt.Sprintf("%s/users/categories/%d/sort", baseURL, *id), token, payload, &resp); err != nil {
			log.Fatalf("sort failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: mangashelf categories <list|create|move|sort>")
	}
}

func handleMigrate(ctx context.Context, client *http.Client, baseURL, tokenPath string, args []string) {
	token := mustToken(tokenPath)
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	oldID := fs.Int64("old", 0, "entry id to migrate from")
	newID := fs.Int64("new", 0, "entry id to migrate to")
	replace := fs.Bool("replace", false, "unfavorite the old entry")
	noChapters := fs.Bool("no-chapters", false, "skip chapter progress")
	noCategories := fs.Bool("no-categories", false, "skip categories")
	noTracks := fs.Bool("no-tracks", false, "skip tracker links")
	noCover := fs.Bool("no-cover", false, "skip the custom cover")
	_ = fs.Parse(args)
	if *oldID == 0 || *newID == 0 {
		log.Fatal("-old and -new entry ids are required")
	}

	payload := map[string]any{
		"old_id":       *oldID,
		"new_id":       *newID,
		"replace":      *replace,
		"chapters":     !*noChapters,
		"categories":   !*noCategories,
		"tracks":       !*noTracks,
		"custom_cover": !*noCover,
	}
	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/users/migrate", token, payload, &resp); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}
	printJSON(resp)
}

func handleEvents(baseURL, sub string, args []string) {
	switch sub {
	case "listen":
		fs := flag.NewFlagSet("events listen", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP event server address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runEventTCP(*addr, *pretty); err != nil {
				log.Printf("[events] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "watch":
		fs := flag.NewFlagSet("events watch", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	default:
		log.Fatal("usage: mangashelf events <listen|watch>")
	}
}

func handleNotify(sub string, args []string) {
	switch sub {
	case "register":
		fs := flag.NewFlagSet("notify register", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:9090", "UDP notify server address")
		user := fs.String("user", "", "user id to register as")
		_ = fs.Parse(args)
		if *user == "" {
			log.Fatal("user is required")
		}
		if err := runNotifyUDP(*addr, *user); err != nil {
			log.Fatalf("notify register failed: %v", err)
		}
	default:
		log.Fatal("usage: mangashelf notify register")
	}
}

func runEventTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[events] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[events] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func runNotifyUDP(addr, user string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	reg, err := json.Marshal(map[string]string{"type": "register", "user_id": user})
	if err != nil {
		return err
	}
	if _, err := conn.Write(reg); err != nil {
		return err
	}
	log.Printf("[notify] registered as %s at %s", user, addr)

	buf := make([]byte, 2048)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		fmt.Println(string(buf[:n]))
	}
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.mangashelf-token.json"
	}
	return filepath.Join(home, ".mangashelf", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("mangashelf <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  library list|add|chapters|sync|viewer")
	fmt.Println("  categories list|create|move|sort")
	fmt.Println("  migrate -old <id> -new <id> [-replace]")
	fmt.Println("  events listen|watch")
	fmt.Println("  notify register")
}
