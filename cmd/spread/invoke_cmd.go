package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke [function] [args...]",
	Short: "Invoke a function on the daemon",
	Long: `Admits one invocation of a dispatchable function. Arguments are parsed as
integers, floats or JSON, falling back to plain strings.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInvoke,
}

var (
	invokeWait    bool
	invokeTimeout time.Duration
)

func init() {
	invokeCmd.Flags().BoolVar(&invokeWait, "wait", false, "Wait for the result and release the slot")
	invokeCmd.Flags().DurationVar(&invokeTimeout, "timeout", 30*time.Second, "How long --wait polls for the result")
}

type invokeResponse struct {
	Function string `json:"function"`
	Slot     int    `json:"slot"`
	Weight   int64  `json:"weight"`
	Fallback bool   `json:"fallback"`
}

type slotResponse struct {
	Done   bool            `json:"done"`
	Result json.RawMessage `json:"result"`
}

func runInvoke(cmd *cobra.Command, args []string) error {
	fnArgs := make([]any, 0, len(args)-1)
	for _, a := range args[1:] {
		fnArgs = append(fnArgs, parseArg(a))
	}

	resp, err := apiPost("/invoke", map[string]any{"function": args[0], "args": fnArgs})
	if err != nil {
		return err
	}
	var inv invokeResponse
	if err := json.Unmarshal(resp, &inv); err != nil {
		return err
	}

	weight := fmt.Sprintf("%d", inv.Weight)
	if inv.Fallback {
		weight += " (statement count)"
	}
	fmt.Printf("Admitted %s slot %d, weight %s\n", inv.Function, inv.Slot, weight)
	if !invokeWait {
		return nil
	}

	slotPath := fmt.Sprintf("/slots/%s/%d", url.PathEscape(inv.Function), inv.Slot)
	deadline := time.Now().Add(invokeTimeout)
	backoff := 10 * time.Millisecond
	for {
		body, err := apiGet(slotPath)
		if err != nil {
			return err
		}
		var res slotResponse
		if err := json.Unmarshal(body, &res); err != nil {
			return err
		}
		if res.Done {
			if len(res.Result) == 0 {
				fmt.Println("Result: (none)")
			} else {
				fmt.Printf("Result: %s\n", res.Result)
			}
			_, err := apiPost(slotPath+"/release", nil)
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s slot %d", inv.Function, inv.Slot)
		}
		time.Sleep(backoff)
		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}
}

// parseArg turns a command-line argument into a JSON-friendly value.
func parseArg(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
