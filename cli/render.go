package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gear6io/wwi-etl/pipeline/history"
	"github.com/gear6io/wwi-etl/pipeline/orchestrator"
	"github.com/gear6io/wwi-etl/pipeline/publish"
	"github.com/gear6io/wwi-etl/pipeline/schema"
	"github.com/pterm/pterm"
)

func renderTable(data pterm.TableData) (string, error) {
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// renderRun lists every table of a run followed by a one-line total
func renderRun(res *orchestrator.RunResult) (string, error) {
	data := pterm.TableData{{"Table", "Status", "Stage", "Rows", "Columns", "Dropped", "Output", "Duration", "Error"}}
	for _, t := range res.Tables {
		status := pterm.Green(string(t.Status))
		errText := ""
		if !t.Succeeded() {
			status = pterm.Red(string(t.Status))
			errText = t.Code + ": " + truncate(t.Reason, 60)
		}
		data = append(data, []string{
			t.Name,
			status,
			string(t.Stage),
			strconv.Itoa(t.Rows),
			strconv.Itoa(t.Columns),
			strconv.Itoa(len(t.Dropped)),
			t.Output,
			t.Duration.Round(time.Millisecond).String(),
			errText,
		})
	}
	out, err := renderTable(data)
	if err != nil {
		return "", err
	}
	return out + fmt.Sprintf("\nRun %s: %d succeeded, %d failed in %s\n",
		res.RunID, len(res.Succeeded()), len(res.Failed()), res.Duration().Round(time.Millisecond)), nil
}

func renderSpecs(specs []schema.TableSpec) (string, error) {
	data := pterm.TableData{{"Table", "Domain", "Source", "Target", "Primary key", "Rules"}}
	for _, s := range specs {
		names := make([]string, len(s.Rules))
		for i, r := range s.Rules {
			names[i] = r.Name
		}
		data = append(data, []string{
			s.Name,
			string(s.Domain),
			s.BronzeKey(),
			s.SilverKey(),
			s.PrimaryKey,
			strings.Join(names, ", "),
		})
	}
	return renderTable(data)
}

func renderHistory(runs []*history.Run) (string, error) {
	data := pterm.TableData{{"Run", "Started", "Duration", "Succeeded", "Failed", "Failed tables"}}
	for _, r := range runs {
		var failed []string
		for _, t := range r.Tables {
			if t.Status != string(orchestrator.StatusSucceeded) {
				failed = append(failed, t.Name+" ("+t.Code+")")
			}
		}
		data = append(data, []string{
			r.ID,
			r.StartedAt.UTC().Format(time.RFC3339),
			r.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
			strings.Join(failed, ", "),
		})
	}
	return renderTable(data)
}

func renderPublish(s publish.Summary) (string, error) {
	data := pterm.TableData{{"File", "Status", "Error"}}
	for _, key := range s.Uploaded {
		data = append(data, []string{key, "uploaded", ""})
	}
	for _, f := range s.Failed {
		data = append(data, []string{f.Key, "failed", f.Code + ": " + truncate(f.Reason, 60)})
	}
	out, err := renderTable(data)
	if err != nil {
		return "", err
	}
	return out + fmt.Sprintf("\n%d of %d files uploaded to %q (%d bytes)\n", len(s.Uploaded), s.Total, s.Prefix, s.Bytes), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
