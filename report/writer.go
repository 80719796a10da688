package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/wyfcoding/mcsim/algorithm/model"
	"github.com/wyfcoding/mcsim/algorithm/sim"
	"github.com/wyfcoding/mcsim/xerrors"
)

// DefaultPrecision 默认保留的小数位.
const DefaultPrecision int32 = 6

// Writer 报告输出器.
type Writer struct {
	format    Format
	precision int32
}

// NewWriter 创建输出器，precision 需在 [0,16].
func NewWriter(format string, precision int32) (*Writer, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if precision < 0 || precision > 16 {
		return nil, xerrors.InvalidArgument("precision must be in [0,16], got %d", precision)
	}
	return &Writer{format: f, precision: precision}, nil
}

// Format 返回输出格式.
func (w *Writer) Format() Format { return w.format }

// Write 输出单个报告.
func (w *Writer) Write(out io.Writer, v Flattener) error {
	return w.WriteComparison(out, []string{"value"}, []Flattener{v})
}

// WriteComparison 将多份报告按列并排输出，names 为列名.
// 各报告的行集合可以不同，缺失的单元格留空.
func (w *Writer) WriteComparison(out io.Writer, names []string, reports []Flattener) error {
	if len(names) != len(reports) {
		return xerrors.ErrDimMismatch.WithDetail("%d names for %d reports", len(names), len(reports))
	}
	t := w.table(names, reports)

	var err error
	switch w.format {
	case FormatCSV:
		err = writeCSV(out, t)
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(w.tree(names, t))
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err = enc.Encode(w.tree(names, t)); err == nil {
			err = enc.Close()
		}
	default:
		err = writeText(out, t)
	}
	if err != nil {
		return xerrors.WrapInternal(err, "write report")
	}
	return nil
}

// table 行按首次出现顺序合并.
type table struct {
	header []string
	keys   []rowKey
	cells  map[rowKey][]string
	raw    map[rowKey][]any
}

type rowKey struct{ section, key string }

func (w *Writer) table(names []string, reports []Flattener) *table {
	t := &table{
		header: append([]string{"section", "metric"}, names...),
		cells:  make(map[rowKey][]string),
		raw:    make(map[rowKey][]any),
	}
	for col, r := range reports {
		for _, row := range r.Rows() {
			k := rowKey{row.Section, row.Key}
			if _, ok := t.cells[k]; !ok {
				t.keys = append(t.keys, k)
				t.cells[k] = make([]string, len(reports))
				t.raw[k] = make([]any, len(reports))
			}
			t.cells[k][col] = formatValue(row, w.precision)
			if row.Text != "" {
				t.raw[k][col] = row.Text
			} else {
				t.raw[k][col] = Round(row.Value, w.precision)
			}
		}
	}
	return t
}

// tree 单列时输出 section -> metric -> value，多列时输出 name -> section -> metric -> value.
func (w *Writer) tree(names []string, t *table) any {
	build := func(col int) map[string]map[string]any {
		m := make(map[string]map[string]any)
		for _, k := range t.keys {
			v := t.raw[k][col]
			if v == nil {
				continue
			}
			if m[k.section] == nil {
				m[k.section] = make(map[string]any)
			}
			m[k.section][k.key] = v
		}
		return m
	}
	if len(names) == 1 {
		return build(0)
	}
	out := make(map[string]map[string]map[string]any, len(names))
	for i, n := range names {
		out[n] = build(i)
	}
	return out
}

func writeCSV(out io.Writer, t *table) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	for _, k := range t.keys {
		if err := cw.Write(append([]string{k.section, k.key}, t.cells[k]...)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeText(out io.Writer, t *table) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	section := ""
	for _, k := range t.keys {
		if k.section != section {
			section = k.section
			if _, err := fmt.Fprintf(tw, "[%s]\n", section); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(tw, "  %s", k.key); err != nil {
			return err
		}
		for _, c := range t.cells[k] {
			if _, err := fmt.Fprintf(tw, "\t%s", c); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(tw); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteSamples 以 CSV 输出终值与收益率，每条路径一行.
func (w *Writer) WriteSamples(out io.Writer, s sim.SampleSet) error {
	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"path", "final_value", "return"}); err != nil {
		return xerrors.WrapInternal(err, "write samples")
	}
	for i := range s.FinalValues {
		rec := []string{
			strconv.Itoa(i),
			formatValue(Row{Value: s.FinalValues[i]}, w.precision),
			formatValue(Row{Value: s.Returns[i]}, w.precision),
		}
		if err := cw.Write(rec); err != nil {
			return xerrors.WrapInternal(err, "write samples")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return xerrors.WrapInternal(err, "write samples")
	}
	return nil
}

// WritePaths 以 CSV 输出保留的完整路径，首列为步序号，第 0 行为初始值.
func (w *Writer) WritePaths(out io.Writer, initial float64, paths []model.Path) error {
	if len(paths) == 0 {
		return xerrors.ErrEmptyData.WithDetail("no retained paths to write")
	}
	cw := csv.NewWriter(out)
	header := make([]string, len(paths)+1)
	header[0] = "step"
	for i := range paths {
		header[i+1] = "path_" + strconv.Itoa(i)
	}
	if err := cw.Write(header); err != nil {
		return xerrors.WrapInternal(err, "write paths")
	}

	steps := len(paths[0])
	rec := make([]string, len(paths)+1)
	for step := 0; step <= steps; step++ {
		rec[0] = strconv.Itoa(step)
		for i, p := range paths {
			v := initial
			if step > 0 && step-1 < len(p) {
				v = p[step-1]
			}
			rec[i+1] = formatValue(Row{Value: v}, w.precision)
		}
		if err := cw.Write(rec); err != nil {
			return xerrors.WrapInternal(err, "write paths")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return xerrors.WrapInternal(err, "write paths")
	}
	return nil
}
