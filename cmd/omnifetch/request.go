package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PauloJuniorVitrine/omnifetch"
)

var dataFlag string

// staticToken adapts a fixed CLI token to the AuthProvider interface.
type staticToken string

func (t staticToken) Token(_ context.Context) (string, error) { return string(t), nil }

func (t staticToken) InvalidateSession() {
	fmt.Fprintln(os.Stderr, color.YellowString("session rejected by server (401)"))
}

// newMethodCmd builds one HTTP-verb subcommand sharing the request runner.
func newMethodCmd(method string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   method + " <endpoint>",
		Short: fmt.Sprintf("Issue a %s request", strings.ToUpper(method)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd.Context(), strings.ToUpper(method), args[0])
		},
	}
	if method != "get" && method != "delete" {
		cmd.Flags().StringVarP(&dataFlag, "data", "d", "", "JSON request body")
	}
	return cmd
}

func runRequest(ctx context.Context, method, endpoint string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	options := []omnifetch.Option{
		omnifetch.WithBaseURL(viper.GetString("base-url")),
		omnifetch.WithTimeout(viper.GetDuration("timeout")),
		omnifetch.WithMaxAttempts(viper.GetInt("retries")),
		omnifetch.WithRetryDelay(viper.GetDuration("retry-delay")),
		omnifetch.WithCacheTTL(viper.GetDuration("cache-ttl")),
		omnifetch.WithNotifier(omnifetch.NotifierFunc(func(n omnifetch.Notification) {
			fmt.Fprintln(os.Stderr, color.RedString("%s: %s", n.Title, n.Message))
		})),
	}
	if viper.GetBool("no-cache") {
		options = append(options, omnifetch.WithoutCache())
	}
	if token := viper.GetString("token"); token != "" {
		options = append(options, omnifetch.WithAuthProvider(staticToken(token)))
	}
	if viper.GetBool("verbose") {
		options = append(options, omnifetch.WithSimpleLogger())
	}

	client := omnifetch.New(options...)
	defer client.Close()

	req := omnifetch.Request{
		Method:   method,
		Endpoint: endpoint,
		// The notifier above already reports failures.
		Silent: false,
	}
	if dataFlag != "" {
		req.Body = json.RawMessage(dataFlag)
	}

	resp, err := client.Execute(ctx, req)
	if err != nil {
		var re *omnifetch.RequestError
		if errors.As(err, &re) && len(re.Body) > 0 {
			fmt.Println(string(re.Body))
		}
		return err
	}

	statusColor := color.New(color.FgGreen, color.Bold)
	if resp.FromCache {
		statusColor = color.New(color.FgCyan, color.Bold)
	}
	fmt.Fprintln(os.Stderr, statusColor.Sprintf("%d %s", resp.StatusCode, resp.StatusText))

	fmt.Println(prettyJSON(resp.Body))

	if viper.GetBool("stats") {
		printCacheStats(client.CacheStats())
	}
	return nil
}

// prettyJSON re-indents a JSON payload, falling back to the raw text.
func prettyJSON(body []byte) string {
	var buf strings.Builder
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return string(body)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func printCacheStats(stats omnifetch.CacheStats) {
	table := tablewriter.NewWriter(os.Stderr)
	table.Header([]string{"Entries", "Valid", "Expired", "Size"})
	data := [][]string{{
		strconv.Itoa(stats.Entries),
		strconv.Itoa(stats.Valid),
		strconv.Itoa(stats.Expired),
		fmt.Sprintf("%dB", stats.SizeBytes),
	}}
	if err := table.Bulk(data); err != nil {
		return
	}
	_ = table.Render()
}
