package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Output печатает результаты followupctl.
//
// Данные (таблицы leads, карточки lead'а и прохода) идут в stdout,
// уведомления — в stderr. В JSON-режиме stdout получает ответ API без
// форматирования, чтобы его можно было передать в jq.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output для stdout/stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными writer'ами.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

var leadColumns = []string{"ID", "EMAIL", "STATUS", "INTERVAL", "LAST CONTACTED", "NEXT DUE"}

// Leads выводит leads таблицей. raw, если не nil, печатается в JSON-режиме
// вместо списка (например, весь ответ импорта).
func (o *Output) Leads(leads []LeadResponse, raw any) {
	if o.jsonMode {
		if raw == nil {
			raw = leads
		}
		o.writeJSON(raw)
		return
	}
	if len(leads) == 0 {
		fmt.Fprintln(o.w, "No leads.")
		return
	}

	tw := o.tabs()
	row(tw, leadColumns...)
	for _, l := range leads {
		row(tw,
			l.ID,
			l.Email,
			l.Status,
			strconv.Itoa(l.EmailInterval)+"m",
			orDash(l.LastContactedAt),
			orDash(l.NextDueAt),
		)
	}
	tw.Flush()
}

// Lead выводит карточку одного lead'а.
func (o *Output) Lead(l LeadResponse, raw any) {
	if o.jsonMode {
		if raw == nil {
			raw = l
		}
		o.writeJSON(raw)
		return
	}

	tw := o.tabs()
	row(tw, "Lead:", l.ID)
	row(tw, "Email:", l.Email)
	row(tw, "Status:", l.Status)
	row(tw, "Interval:", fmt.Sprintf("every %d min", l.EmailInterval))
	row(tw, "Created:", l.CreatedAt)
	row(tw, "Last contacted:", orDash(l.LastContactedAt))
	if l.Status == "active" {
		row(tw, "Next due:", orDash(l.NextDueAt))
	}
	tw.Flush()
}

// Pass выводит итоги прохода рассылки.
func (o *Output) Pass(p PassResponse) {
	if o.jsonMode {
		o.writeJSON(p)
		return
	}

	tw := o.tabs()
	row(tw, "Pass:", p.ID)
	row(tw, "Started:", p.StartedAt)
	row(tw, "Duration:", fmt.Sprintf("%dms", p.DurationMS))
	row(tw, "Evaluated:", strconv.Itoa(p.Evaluated))
	row(tw, "Due:", strconv.Itoa(p.Due))
	row(tw, "Sent:", strconv.Itoa(p.Sent))
	if failed := p.DeliveryFailed + p.UpdateFailed; failed > 0 {
		row(tw, "Failed:", fmt.Sprintf("%d (delivery %d, update %d)", failed, p.DeliveryFailed, p.UpdateFailed))
	}
	if p.Skipped > 0 {
		row(tw, "Skipped:", strconv.Itoa(p.Skipped))
	}
	tw.Flush()
}

// Notice выводит уведомление в stderr.
func (o *Output) Notice(format string, args ...any) {
	fmt.Fprintf(o.errW, format+"\n", args...)
}

// Warn выводит предупреждение в stderr.
func (o *Output) Warn(format string, args ...any) {
	fmt.Fprintf(o.errW, "Warning: "+format+"\n", args...)
}

func (o *Output) tabs() *tabwriter.Writer {
	return tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
}

func (o *Output) writeJSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func row(w io.Writer, cells ...string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
