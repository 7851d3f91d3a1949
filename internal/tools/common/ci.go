package common

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type ciResult struct {
	Check      string    `json:"check"`
	Passed     bool      `json:"passed"`
	Details    []string  `json:"details,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// PrintCIResult writes a single machine-readable result line to stdout. CI
// pipelines parse this instead of the interactive output.
func PrintCIResult(passed bool, check string, details []string, err error) {
	res := ciResult{Check: check, Passed: passed, Details: details, FinishedAt: time.Now().UTC()}
	if err != nil {
		res.Error = err.Error()
	}
	payload, marshalErr := json.Marshal(res)
	if marshalErr != nil {
		fmt.Fprintf(os.Stderr, "marshal ci result: %v\n", marshalErr)
		return
	}
	fmt.Println(string(payload))
}
