// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tombee/citrus/internal/commands/shared"
)

// maxErrorWidth truncates failure messages in the table.
const maxErrorWidth = 80

// WriteSummary renders the result table followed by the totals line.
func WriteSummary(w io.Writer, s Summary) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Test", "Package", "Status", "Actions", "Duration", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, WidthMax: maxErrorWidth},
	})

	for _, r := range s.Results {
		t.AppendRow(table.Row{
			r.Name,
			shared.Muted.Render(r.Package),
			shared.RenderResult(r.Status),
			r.ActionsExecuted,
			r.Duration.Round(time.Millisecond).String(),
			firstLine(r.ErrorMessage()),
		})
	}
	t.Render()

	_, err := fmt.Fprintln(w, totals(s))
	return err
}

func totals(s Summary) string {
	parts := []string{
		shared.Bold.Render(fmt.Sprintf("%d tests", s.Total)),
		shared.StatusOK.Render(fmt.Sprintf("%d passed", s.Passed)),
	}
	if s.Failed > 0 {
		parts = append(parts, shared.StatusError.Render(fmt.Sprintf("%d failed", s.Failed)))
	}
	if s.Skipped > 0 {
		parts = append(parts, shared.StatusWarn.Render(fmt.Sprintf("%d skipped", s.Skipped)))
	}
	return strings.Join(parts, ", ") + shared.Muted.Render(" in "+s.Duration.Round(time.Millisecond).String())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
