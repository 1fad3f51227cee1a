// ABOUTME: Admin CLI for mcp-router servers, API keys and permissions
// ABOUTME: Talks to the router's HTTP API with a JWT admin token

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/2389/mcp-router/internal/gateway"
	"github.com/2389/mcp-router/internal/grants"
)

const banner = `
                                                 _           _
 _ __ ___   ___ _ __        _ __ ___  _   _ ___| |_ __ ___ (_)_ __
| '_ ' _ \ / __| '_ \ _____| '__/ _ \| | | / _ \ | '_ ' _ \| | '_ \
| | | | | | (__| |_) |_____| | | (_) | |_| | __/ | | | | | | | | | |
|_| |_| |_|\___| .__/      |_|  \___/ \__,_\___|_|_| |_| |_|_|_| |_|
               |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath())
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &admin{out: os.Stdout, client: newClient(cfg)}
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) {
			printUsage()
		}
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

// errUsage marks an unknown top-level command.
var errUsage = errors.New("unknown command")

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: mcp-router-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  status                          Router health and counts")
	fmt.Println("  servers [list]                  List MCP servers")
	fmt.Println("  servers add <name> [flags]      Register a server")
	fmt.Println("      --transport stdio|http|sse  --command CMD  --arg A (repeatable)")
	fmt.Println("      --env K=V (repeatable)      --url URL      --disabled")
	fmt.Println("  servers rm <server>             Delete a server")
	fmt.Println("  servers enable|disable <server> Toggle a server")
	fmt.Println("  servers refresh [server]        Rediscover one or all servers")
	fmt.Println("  servers caps <server>           List a server's capabilities")
	fmt.Println("  servers caps <server> enable|disable <kind> <name>")
	fmt.Println("  keys [list]                     List API keys")
	fmt.Println("  keys create <name>              Issue an API key (token shown once)")
	fmt.Println("  keys revoke <key>               Revoke an API key")
	fmt.Println("  perms <key> [show]              Show a key's permissions")
	fmt.Println("  perms <key> all|none|invert     Bulk edit (--scope all|filtered|group)")
	fmt.Println("  perms <key> toggle <server>     Toggle a whole server group")
	fmt.Println("  perms <key> grant|revoke <id>   Add or remove an identifier or pattern")
	fmt.Println("      --group SERVER  --q TERM    Narrow the scope or view")
	fmt.Println("  audit [--action A] [--limit N]  Show the audit log")
	fmt.Println()
	yellow.Println("Configuration:")
	fmt.Printf("  %s\n", configPath())
	fmt.Println("      url = \"http://localhost:8090\"")
	fmt.Println("      token = \"<admin JWT from mcp-router token>\"")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  MCP_ROUTER_URL                  Router base URL (overrides config)")
	fmt.Println("  MCP_ROUTER_TOKEN                Admin JWT (overrides config)")
	fmt.Println()
}

// admin runs commands against one router, writing to out.
type admin struct {
	out    io.Writer
	client *client
}

func (a *admin) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "status":
		return a.cmdStatus(ctx)
	case "servers", "server":
		return a.cmdServers(ctx, args)
	case "keys", "key":
		return a.cmdKeys(ctx, args)
	case "perms", "permissions":
		return a.cmdPerms(ctx, args)
	case "audit":
		return a.cmdAudit(ctx, args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return fmt.Errorf("%w: %s", errUsage, cmd)
	}
}

// subcommand splits args into a subcommand, defaulting to def.
func subcommand(args []string, def string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return def, args
	}
	return args[0], args[1:]
}

func (a *admin) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func (a *admin) heading(title string) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(a.out)
	cyan.Fprintf(a.out, "  %s\n", title)
	cyan.Fprintf(a.out, "  %s\n", strings.Repeat("-", len(title)))
}

func (a *admin) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(a.out, "✓ "+format+"\n", args...)
}

func (a *admin) cmdStatus(ctx context.Context) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "  Router:  %s\n", a.client.baseURL)

	status, body, err := a.client.getText(ctx, "/health")
	if err != nil || status != http.StatusOK {
		fmt.Fprint(a.out, "  Health:  ")
		red.Fprintln(a.out, "unreachable")
		if err != nil {
			return err
		}
		return fmt.Errorf("health check returned %d", status)
	}
	fmt.Fprint(a.out, "  Health:  ")
	green.Fprintln(a.out, body)

	status, body, err = a.client.getText(ctx, "/health/ready")
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, "  Ready:   ")
	if status == http.StatusOK {
		green.Fprintln(a.out, body)
	} else {
		yellow.Fprintln(a.out, body)
	}

	servers, err := a.client.listServers(ctx)
	if err != nil {
		return err
	}
	byStatus := lo.CountValuesBy(servers, func(s gateway.ServerResponse) string { return s.Status })
	fmt.Fprintf(a.out, "  Servers: %d (%d connected, %d error)\n",
		len(servers), byStatus["connected"], byStatus["error"])

	keys, err := a.client.listKeys(ctx)
	if err != nil {
		return err
	}
	active := lo.CountBy(keys, func(k gateway.KeyResponse) bool { return k.RevokedAt == nil })
	fmt.Fprintf(a.out, "  Keys:    %d (%d active)\n", len(keys), active)
	fmt.Fprintln(a.out)
	return nil
}

func (a *admin) cmdServers(ctx context.Context, args []string) error {
	subcmd, args := subcommand(args, "list")

	switch subcmd {
	case "list", "ls":
		return a.cmdServersList(ctx)
	case "add", "create":
		return a.cmdServersAdd(ctx, args)
	case "rm", "delete", "remove":
		return a.cmdServersRemove(ctx, args)
	case "enable", "disable":
		return a.cmdServersToggle(ctx, args, subcmd == "enable")
	case "refresh":
		return a.cmdServersRefresh(ctx, args)
	case "caps", "capabilities":
		return a.cmdServersCaps(ctx, args)
	default:
		return fmt.Errorf("unknown servers subcommand: %s (use list, add, rm, enable, disable, refresh, caps)", subcmd)
	}
}

func (a *admin) cmdServersList(ctx context.Context) error {
	servers, err := a.client.listServers(ctx)
	if err != nil {
		return err
	}

	a.heading("MCP Servers")
	if len(servers) == 0 {
		fmt.Fprintln(a.out, "  (no servers)")
		fmt.Fprintln(a.out)
		return nil
	}

	w := a.table()
	fmt.Fprintln(w, "  NAME\tTRANSPORT\tSTATUS\tENABLED\tREFRESHED\tID")
	fmt.Fprintln(w, "  ----\t---------\t------\t-------\t---------\t--")
	for _, s := range servers {
		refreshed := "never"
		if s.RefreshedAt != nil {
			refreshed = s.RefreshedAt.Local().Format("Jan 02 15:04")
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			s.Name, s.Transport, colorStatus(s.Status), yesNo(s.Enabled), refreshed, truncate(s.ID, 12))
	}
	w.Flush()

	for _, s := range servers {
		if s.LastError != "" {
			color.New(color.FgRed).Fprintf(a.out, "  %s: %s\n", s.Name, s.LastError)
		}
	}
	fmt.Fprintln(a.out)
	return nil
}

// parseServerFlags builds a create request from "servers add" arguments.
func parseServerFlags(args []string) (gateway.CreateServerRequest, error) {
	var req gateway.CreateServerRequest
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return req, fmt.Errorf("usage: servers add <name> --transport stdio --command CMD [--arg A] [--env K=V] | --transport http --url URL")
	}
	req.Name = args[0]
	args = args[1:]

	for i := 0; i < len(args); i++ {
		flag := args[i]
		if flag == "--disabled" {
			disabled := false
			req.Enabled = &disabled
			continue
		}
		if i+1 >= len(args) {
			return req, fmt.Errorf("%s requires a value", flag)
		}
		val := args[i+1]
		i++
		switch flag {
		case "--transport", "-t":
			req.Transport = val
		case "--command", "-c":
			req.Command = val
		case "--arg", "-a":
			req.Args = append(req.Args, val)
		case "--env", "-e":
			k, v, ok := strings.Cut(val, "=")
			if !ok || k == "" {
				return req, fmt.Errorf("--env expects KEY=VALUE, got %q", val)
			}
			if req.Env == nil {
				req.Env = map[string]string{}
			}
			req.Env[k] = v
		case "--url", "-u":
			req.URL = val
		default:
			return req, fmt.Errorf("unknown flag: %s", flag)
		}
	}

	if req.Transport == "" {
		req.Transport = "stdio"
		if req.URL != "" {
			req.Transport = "http"
		}
	}
	return req, nil
}

func (a *admin) cmdServersAdd(ctx context.Context, args []string) error {
	req, err := parseServerFlags(args)
	if err != nil {
		return err
	}

	var srv gateway.ServerResponse
	if err := a.client.do(ctx, http.MethodPost, "/api/servers", req, &srv); err != nil {
		return err
	}

	a.success("Registered server: %s", srv.Name)
	fmt.Fprintf(a.out, "  ID:        %s\n", srv.ID)
	fmt.Fprintf(a.out, "  Transport: %s\n", srv.Transport)
	if srv.URL != "" {
		fmt.Fprintf(a.out, "  URL:       %s\n", srv.URL)
	} else {
		fmt.Fprintf(a.out, "  Command:   %s\n", strings.Join(append([]string{srv.Command}, srv.Args...), " "))
	}
	fmt.Fprintf(a.out, "  Enabled:   %s\n", yesNo(srv.Enabled))
	return nil
}

func (a *admin) cmdServersRemove(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: servers rm <server>")
	}
	srv, err := a.client.resolveServer(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.client.do(ctx, http.MethodDelete, "/api/servers/"+url.PathEscape(srv.ID), nil, nil); err != nil {
		return err
	}
	a.success("Deleted server: %s", srv.Name)
	return nil
}

func (a *admin) cmdServersToggle(ctx context.Context, args []string, enabled bool) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: servers enable|disable <server>")
	}
	srv, err := a.client.resolveServer(ctx, args[0])
	if err != nil {
		return err
	}
	req := gateway.UpdateServerRequest{Enabled: &enabled}
	if err := a.client.do(ctx, http.MethodPatch, "/api/servers/"+url.PathEscape(srv.ID), req, nil); err != nil {
		return err
	}
	a.success("%s server: %s", lo.Ternary(enabled, "Enabled", "Disabled"), srv.Name)
	return nil
}

func (a *admin) cmdServersRefresh(ctx context.Context, args []string) error {
	if len(args) == 0 {
		var results []gateway.RefreshResponse
		if err := a.client.do(ctx, http.MethodPost, "/api/refresh", nil, &results); err != nil {
			return err
		}
		a.printRefreshResults(results)
		return nil
	}

	srv, err := a.client.resolveServer(ctx, args[0])
	if err != nil {
		return err
	}
	var res gateway.RefreshResponse
	if err := a.client.do(ctx, http.MethodPost, "/api/servers/"+url.PathEscape(srv.ID)+"/refresh", nil, &res); err != nil {
		return err
	}
	a.success("Refreshed %s: %d capabilities", res.ServerName, res.Capabilities)
	return nil
}

func (a *admin) printRefreshResults(results []gateway.RefreshResponse) {
	a.heading("Refresh")
	if len(results) == 0 {
		fmt.Fprintln(a.out, "  (no enabled servers)")
		fmt.Fprintln(a.out)
		return
	}
	w := a.table()
	fmt.Fprintln(w, "  SERVER\tCAPABILITIES\tRESULT")
	fmt.Fprintln(w, "  ------\t------------\t------")
	for _, r := range results {
		result := color.GreenString("ok")
		if r.Error != "" {
			result = color.RedString(truncate(r.Error, 60))
		}
		fmt.Fprintf(w, "  %s\t%d\t%s\n", r.ServerName, r.Capabilities, result)
	}
	w.Flush()
	fmt.Fprintln(a.out)
}

func (a *admin) cmdServersCaps(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: servers caps <server> [enable|disable <kind> <name>]")
	}
	srv, err := a.client.resolveServer(ctx, args[0])
	if err != nil {
		return err
	}
	base := "/api/servers/" + url.PathEscape(srv.ID) + "/capabilities"

	if len(args) > 1 {
		action := args[1]
		if (action != "enable" && action != "disable") || len(args) != 4 {
			return fmt.Errorf("usage: servers caps <server> enable|disable <kind> <name>")
		}
		req := gateway.SetCapabilityRequest{Kind: args[2], Name: args[3], Enabled: action == "enable"}
		if err := a.client.do(ctx, http.MethodPatch, base, req, nil); err != nil {
			return err
		}
		a.success("%s %s %s on %s", lo.Ternary(req.Enabled, "Enabled", "Disabled"), req.Kind, req.Name, srv.Name)
		return nil
	}

	var caps []gateway.CapabilityResponse
	if err := a.client.do(ctx, http.MethodGet, base, nil, &caps); err != nil {
		return err
	}

	a.heading("Capabilities of " + srv.Name)
	if len(caps) == 0 {
		fmt.Fprintln(a.out, "  (none discovered; try servers refresh)")
		fmt.Fprintln(a.out)
		return nil
	}
	w := a.table()
	fmt.Fprintln(w, "  KIND\tIDENTIFIER\tENABLED\tDESCRIPTION")
	fmt.Fprintln(w, "  ----\t----------\t-------\t-----------")
	for _, c := range caps {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", c.Kind, c.Identifier, yesNo(c.Enabled), truncate(c.Description, 50))
	}
	w.Flush()
	fmt.Fprintln(a.out)
	return nil
}

func (a *admin) cmdKeys(ctx context.Context, args []string) error {
	subcmd, args := subcommand(args, "list")

	switch subcmd {
	case "list", "ls":
		return a.cmdKeysList(ctx)
	case "create", "add":
		return a.cmdKeysCreate(ctx, args)
	case "revoke", "rm", "delete":
		return a.cmdKeysRevoke(ctx, args)
	default:
		return fmt.Errorf("unknown keys subcommand: %s (use list, create, revoke)", subcmd)
	}
}

func (a *admin) cmdKeysList(ctx context.Context) error {
	keys, err := a.client.listKeys(ctx)
	if err != nil {
		return err
	}

	a.heading("API Keys")
	if len(keys) == 0 {
		fmt.Fprintln(a.out, "  (no keys)")
		fmt.Fprintln(a.out)
		return nil
	}

	w := a.table()
	fmt.Fprintln(w, "  NAME\tPREFIX\tCREATED\tLAST USED\tSTATE\tID")
	fmt.Fprintln(w, "  ----\t------\t-------\t---------\t-----\t--")
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Local().Format("Jan 02 15:04")
		}
		state := color.GreenString("active")
		if k.RevokedAt != nil {
			state = color.RedString("revoked")
		}
		fmt.Fprintf(w, "  %s\t%s…\t%s\t%s\t%s\t%s\n",
			k.Name, k.Prefix, k.CreatedAt.Local().Format("Jan 02 15:04"), lastUsed, state, k.ID)
	}
	w.Flush()
	fmt.Fprintln(a.out)
	return nil
}

func (a *admin) cmdKeysCreate(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: keys create <name>")
	}

	var key gateway.KeyResponse
	if err := a.client.do(ctx, http.MethodPost, "/api/keys", gateway.CreateKeyRequest{Name: args[0]}, &key); err != nil {
		return err
	}

	a.success("Created API key: %s", key.Name)
	fmt.Fprintf(a.out, "  ID:    %s\n", key.ID)
	fmt.Fprint(a.out, "  Token: ")
	color.New(color.FgYellow, color.Bold).Fprintln(a.out, key.Token)
	fmt.Fprintln(a.out)
	color.New(color.FgHiBlack).Fprintln(a.out, "  The token is shown once. New keys have no permissions; grant them with perms.")
	return nil
}

func (a *admin) cmdKeysRevoke(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: keys revoke <key>")
	}
	key, err := a.client.resolveKey(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.client.do(ctx, http.MethodDelete, "/api/keys/"+url.PathEscape(key.ID), nil, nil); err != nil {
		return err
	}
	a.success("Revoked API key: %s", key.Name)
	return nil
}

// permsArgs is a parsed "perms" command line.
type permsArgs struct {
	key      string
	action   string
	target   string
	mutation grants.Mutation
}

// parsePermsArgs turns "perms <key> [action] [target] [--scope S] [--group G] [--q TERM]" into a request.
func parsePermsArgs(args []string) (permsArgs, error) {
	var p permsArgs
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, val, hasVal := strings.Cut(arg, "=")
		switch name {
		case "--scope", "--group", "--q", "-q":
			if !hasVal {
				if i+1 >= len(args) {
					return p, fmt.Errorf("%s requires a value", name)
				}
				val = args[i+1]
				i++
			}
			switch name {
			case "--scope":
				p.mutation.Scope = grants.Scope(val)
			case "--group":
				p.mutation.Group = val
			default:
				p.mutation.Query = val
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return p, fmt.Errorf("unknown flag: %s", arg)
			}
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return p, fmt.Errorf("usage: perms <key> [show|all|none|invert|toggle <server>|grant <id>|revoke <id>]")
	}
	p.key = positional[0]
	p.action = "show"
	if len(positional) > 1 {
		p.action = positional[1]
	}
	if len(positional) > 2 {
		p.target = positional[2]
	}
	if len(positional) > 3 {
		return p, fmt.Errorf("unexpected argument: %s", positional[3])
	}

	needsTarget := false
	switch p.action {
	case "show", "view":
		p.action = "show"
	case "all":
		p.mutation.Op = grants.OpSelectAll
	case "none":
		p.mutation.Op = grants.OpSelectNone
	case "invert":
		p.mutation.Op = grants.OpInvert
	case "toggle":
		p.mutation.Op = grants.OpToggleGroup
		needsTarget = p.mutation.Group == ""
		if p.target != "" {
			p.mutation.Group = p.target
		}
	case "grant", "add":
		p.mutation.Op = grants.OpAdd
		p.mutation.Identifier = p.target
		needsTarget = true
	case "revoke", "remove":
		p.mutation.Op = grants.OpRemove
		p.mutation.Identifier = p.target
		needsTarget = true
	default:
		return p, fmt.Errorf("unknown perms action: %s (use show, all, none, invert, toggle, grant, revoke)", p.action)
	}
	if needsTarget && p.target == "" {
		return p, fmt.Errorf("perms %s needs a target", p.action)
	}

	// A group flag on a bulk op implies group scope; a query implies filtered.
	if p.mutation.Scope == "" {
		switch p.mutation.Op {
		case grants.OpSelectAll, grants.OpSelectNone, grants.OpInvert:
			switch {
			case p.mutation.Group != "":
				p.mutation.Scope = grants.ScopeGroup
			case p.mutation.Query != "":
				p.mutation.Scope = grants.ScopeFiltered
			}
		}
	}
	return p, nil
}

func (a *admin) cmdPerms(ctx context.Context, args []string) error {
	p, err := parsePermsArgs(args)
	if err != nil {
		return err
	}
	key, err := a.client.resolveKey(ctx, p.key)
	if err != nil {
		return err
	}
	if key.RevokedAt != nil {
		color.New(color.FgYellow).Fprintf(a.out, "! key %s is revoked; authorize rejects it whatever it is granted\n", key.Name)
	}

	var view *grants.View
	if p.action == "show" {
		view, err = a.client.viewPermissions(ctx, key.ID, p.mutation.Query)
	} else {
		view, err = a.client.applyPermissions(ctx, key.ID, p.mutation)
	}
	if err != nil {
		return err
	}

	a.printView(key.Name, view)
	return nil
}

func (a *admin) printView(keyName string, view *grants.View) {
	title := "Permissions for " + keyName
	if view.Query != "" {
		title += fmt.Sprintf(" matching %q", view.Query)
	}
	a.heading(title)

	if len(view.Groups) == 0 {
		fmt.Fprintln(a.out, "  (nothing matches)")
	}
	for _, g := range view.Groups {
		mark := "[ ]"
		switch {
		case g.Full:
			mark = color.GreenString("[x]")
		case g.Partial:
			mark = color.YellowString("[-]")
		}
		fmt.Fprintf(a.out, "  %s %s ", mark, color.New(color.Bold).Sprint(g.Server))
		color.New(color.FgHiBlack).Fprintf(a.out, "(%d/%d)\n", g.SelectedCount, g.Total)
		for _, it := range g.Items {
			if it.Checked {
				fmt.Fprintf(a.out, "      %s %s\n", color.GreenString("[x]"), it.Name)
			} else {
				fmt.Fprintf(a.out, "      [ ] %s\n", it.Name)
			}
		}
	}
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "  Selected %d of %d\n", view.Selected, view.Total)
	patterns := lo.Filter(view.Granted, func(s string, _ int) bool { return strings.Contains(s, "*") })
	if len(patterns) > 0 {
		fmt.Fprintf(a.out, "  Patterns: %s\n", strings.Join(patterns, ", "))
	}
	fmt.Fprintln(a.out)
}

func (a *admin) cmdAudit(ctx context.Context, args []string) error {
	q := url.Values{}
	for i := 0; i < len(args); i++ {
		name, val, hasVal := strings.Cut(args[i], "=")
		key := strings.TrimPrefix(name, "--")
		switch key {
		case "action", "target_type", "target_id", "since", "limit":
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
		if !hasVal {
			if i+1 >= len(args) {
				return fmt.Errorf("%s requires a value", name)
			}
			val = args[i+1]
			i++
		}
		q.Set(key, val)
	}

	path := "/api/audit"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var entries []gateway.AuditEntryResponse
	if err := a.client.do(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return err
	}

	a.heading("Audit Log")
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "  (no entries)")
		fmt.Fprintln(a.out)
		return nil
	}
	w := a.table()
	fmt.Fprintln(w, "  TIME\tACTOR\tACTION\tTARGET")
	fmt.Fprintln(w, "  ----\t-----\t------\t------")
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s/%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Actor, e.Action, e.TargetType, truncate(e.TargetID, 12))
	}
	w.Flush()
	fmt.Fprintln(a.out)
	return nil
}

func colorStatus(status string) string {
	switch status {
	case "connected":
		return color.GreenString(status)
	case "error":
		return color.RedString(status)
	default:
		return color.HiBlackString(status)
	}
}

func yesNo(b bool) string {
	return lo.Ternary(b, "yes", "no")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
