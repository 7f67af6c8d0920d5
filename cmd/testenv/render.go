package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/samzhu/scim/component"
	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/workload"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderProperties(w io.Writer, props map[string]string, asJSON bool) error {
	if asJSON {
		return writeJSON(w, props)
	}
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")
	for _, k := range slices.Sorted(maps.Keys(props)) {
		if err := table.Append(k, props[k]); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderEnviron(w io.Writer, environ []string) error {
	for _, kv := range environ {
		if _, err := fmt.Fprintln(w, kv); err != nil {
			return err
		}
	}
	return nil
}

func renderDescriptions(w io.Writer, descs []component.Description) error {
	if len(descs) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Component", "Type", "Details", "Port")
	for _, d := range descs {
		port := "-"
		if d.Port != 0 {
			port = fmt.Sprint(d.Port)
		}
		if err := table.Append(d.Name, d.Type, d.Details, port); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderWorkloads(w io.Writer, items []workload.WorkloadInfo, asJSON bool) error {
	if asJSON {
		if items == nil {
			items = []workload.WorkloadInfo{}
		}
		return writeJSON(w, items)
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No managed containers")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Fixture", "Session", "Image", "Status", "Ports", "Created")
	for _, it := range items {
		if err := table.Append(
			shortID(it.ID),
			it.Labels[container.LabelFixture],
			shortID(it.Labels[container.LabelSession]),
			it.Image,
			it.Status,
			strings.Join(it.Ports, ", "),
			age(it.Created),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nTotal containers: %d\n", len(items))
	return err
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return time.Since(t).Round(time.Second).String() + " ago"
}
