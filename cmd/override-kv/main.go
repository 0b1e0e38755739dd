package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"spot-api/internal/backup"
	"spot-api/internal/catalog"
	"spot-api/internal/kv"
	"spot-api/internal/override"
	"spot-api/internal/saved"
	"spot-api/internal/utils"

	"github.com/joho/godotenv"
)

// assignKey：set 命令中 field=value 的字段名位置；只识别可编辑字段，其余 word= 属于值的一部分
var assignKey = regexp.MustCompile(`(?i)(?:^|\s)(title|description|desc|categorylabel|category|rating)=`)

// parseAssignments：把 `title=Old Gate rating=4,5` 拆成字段表；值可以包含空格，直到下一个已知字段名=
func parseAssignments(s string) (map[string]string, error) {
	locs := assignKey.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return nil, errors.New("expected field=value")
	}
	if strings.TrimSpace(s[:locs[0][0]]) != "" {
		return nil, fmt.Errorf("unexpected %q", strings.TrimSpace(s[:locs[0][0]]))
	}
	out := make(map[string]string, len(locs))
	for i, loc := range locs {
		end := len(s)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out[s[loc[2]:loc[3]]] = strings.TrimSpace(s[loc[1]:end])
	}
	return out, nil
}

// buildPatch：操作员补丁按原样写入（含空字符串），评分仍走同一套归一化
func buildPatch(fields map[string]string) (override.Patch, error) {
	var p override.Patch
	for k, v := range fields {
		switch strings.ToLower(k) {
		case "title":
			p.Title = override.Str(v)
		case "description", "desc":
			p.Description = override.Str(v)
		case "categorylabel", "category":
			p.CategoryLabel = override.Str(v)
		case "rating":
			r, ok := override.NormalizeRating(v)
			if !ok {
				return override.Patch{}, fmt.Errorf("bad rating %q", v)
			}
			p.Rating = override.Float(r)
		default:
			return override.Patch{}, fmt.Errorf("unknown field %q", k)
		}
	}
	return p, nil
}

func printJSON(w io.Writer, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(w, "error:", err)
		return
	}
	fmt.Fprintln(w, string(b))
}

func printHelp() {
	fmt.Println("commands:")
	fmt.Println("  get <id>")
	fmt.Println("  set <id> field=value [field=value...]   fields: title description categoryLabel rating")
	fmt.Println("      values run to the next known field name, so `description=see a=b` keeps `a=b`")
	fmt.Println("  del <id>")
	fmt.Println("  list")
	fmt.Println("  decorate <id>")
	fmt.Println("  save <id>")
	fmt.Println("  saved")
	fmt.Println("  export")
	fmt.Println("  reset")
	fmt.Println("  help")
	fmt.Println("  exit")
}

func prompt(r *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	s, _ := r.ReadString('\n')
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

type cli struct {
	cat *catalog.Catalog
	ov  *override.Store
	sv  *saved.Store
	bk  *backup.Service
	in  *bufio.Reader
	out io.Writer
}

func (c *cli) spot(id string) (catalog.Spot, bool) {
	sp, ok := c.cat.Get(id)
	if !ok {
		fmt.Fprintln(c.out, "unknown spot:", id)
	}
	return sp, ok
}

// run：执行一行命令；返回 false 表示退出
func (c *cli) run(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	arg := func() (string, bool) {
		if len(parts) < 2 {
			fmt.Fprintf(c.out, "usage: %s <id>\n", cmd)
			return "", false
		}
		return parts[1], true
	}
	switch cmd {
	case "exit", "quit":
		return false
	case "help":
		printHelp()
	case "get":
		id, ok := arg()
		if !ok {
			return true
		}
		p, err := c.ov.Get(ctx, id)
		switch {
		case errors.Is(err, kv.ErrNotFound):
			fmt.Fprintln(c.out, "none")
		case err != nil:
			fmt.Fprintln(c.out, "error:", err)
		default:
			printJSON(c.out, p)
		}
	case "set":
		if len(parts) < 3 {
			fmt.Fprintln(c.out, "usage: set <id> field=value [field=value...]")
			return true
		}
		if _, ok := c.spot(parts[1]); !ok {
			return true
		}
		rest := strings.TrimSpace(line[len(parts[0]):])
		rest = strings.TrimSpace(strings.TrimPrefix(rest, parts[1]))
		fields, err := parseAssignments(rest)
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return true
		}
		p, err := buildPatch(fields)
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return true
		}
		if err := c.ov.Set(ctx, parts[1], p); err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return true
		}
		fmt.Fprintln(c.out, "ok", strings.Join(p.Fields(), ","))
	case "del":
		id, ok := arg()
		if !ok {
			return true
		}
		if err := c.ov.Delete(ctx, id); err != nil {
			fmt.Fprintln(c.out, "error:", err)
		} else {
			fmt.Fprintln(c.out, "ok")
		}
	case "list":
		all, err := c.ov.All(ctx)
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return true
		}
		ids := make([]string, 0, len(all))
		for id := range all {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			b, _ := json.Marshal(all[id])
			fmt.Fprintf(c.out, "%s -> %s\n", id, b)
		}
		if len(ids) == 0 {
			fmt.Fprintln(c.out, "none")
		}
	case "decorate":
		id, ok := arg()
		if !ok {
			return true
		}
		if sp, ok := c.spot(id); ok {
			printJSON(c.out, c.ov.Decorate(ctx, sp))
		}
	case "save":
		id, ok := arg()
		if !ok {
			return true
		}
		if _, ok := c.spot(id); !ok {
			return true
		}
		state, err := c.sv.Toggle(ctx, id)
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return true
		}
		fmt.Fprintln(c.out, id, map[bool]string{true: "saved", false: "unsaved"}[state])
	case "saved":
		if err := c.sv.Refresh(ctx); err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return true
		}
		ids := c.sv.IDs()
		if len(ids) == 0 {
			fmt.Fprintln(c.out, "none")
		}
		for _, id := range ids {
			fmt.Fprintln(c.out, id)
		}
	case "export":
		p, err := c.bk.Export(ctx)
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return true
		}
		if err := backup.Encode(c.out, p); err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
	case "reset":
		if prompt(c.in, "delete all local data? type yes", "") != "yes" {
			fmt.Fprintln(c.out, "aborted")
			return true
		}
		if err := c.bk.Reset(ctx); err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return true
		}
		_ = c.sv.Refresh(ctx)
		fmt.Fprintln(c.out, "ok")
	default:
		fmt.Fprintln(c.out, "unknown command")
	}
	return true
}

func main() {
	var envFile string
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "--env" && i+1 < len(os.Args) {
			envFile = os.Args[i+1]
			i++
		} else if strings.HasSuffix(os.Args[i], ".env") {
			envFile = os.Args[i]
		}
	}
	in := bufio.NewReader(os.Stdin)
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else if os.Getenv("KV_DRIVER") == "" {
		fmt.Println("输入存储参数，回车使用默认值")
		driver := prompt(in, "KV_DRIVER", string(kv.DriverFile))
		_ = os.Setenv("KV_DRIVER", driver)
		switch kv.Driver(driver) {
		case kv.DriverFile:
			_ = os.Setenv("KV_FILE_PATH", prompt(in, "KV_FILE_PATH", os.Getenv("KV_FILE_PATH")))
		case kv.DriverSQLite:
			_ = os.Setenv("SQLITE_PATH", prompt(in, "SQLITE_PATH", os.Getenv("SQLITE_PATH")))
		}
	}
	store, err := utils.OpenKVFromEnv()
	if err != nil {
		fmt.Println("kv error:", err)
		os.Exit(1)
	}
	defer store.Close()

	cat, err := catalog.Default()
	if p := os.Getenv("CATALOG_PATH"); p != "" {
		var f *os.File
		if f, err = os.Open(p); err == nil {
			cat, err = catalog.Load(f)
			f.Close()
		}
	}
	if err != nil {
		fmt.Println("catalog error:", err)
		os.Exit(1)
	}

	retries := utils.EnvInt("OVERRIDE_MAX_RETRIES", override.DefaultRetries)
	c := &cli{
		cat: cat,
		ov:  override.New(store, override.WithRetries(retries)),
		sv:  saved.New(store, saved.WithRetries(retries)),
		bk:  backup.New(store),
		in:  in,
		out: os.Stdout,
	}
	ctx := context.Background()
	if err := c.sv.Refresh(ctx); err != nil {
		fmt.Println("saved load warning:", err)
	}
	fmt.Println("override kv cli ready", "driver="+string(store.Driver()))
	printHelp()
	for {
		fmt.Print("> ")
		line, err := in.ReadString('\n')
		if strings.TrimSpace(line) != "" && !c.run(ctx, strings.TrimSpace(line)) {
			return
		}
		if err != nil {
			return
		}
	}
}
