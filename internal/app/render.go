package app

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"longport-trader/internal/balance"
	"longport-trader/internal/longport"
)

// 单行调试文本可能包含多条现金明细，放宽 Scanner 默认的 64KB 限制
const maxLineSize = 1 << 20

// RenderReports 从 r 读取资金调试文本（每个非空行一条），解析后输出报告。
func RenderReports(r io.Reader, w io.Writer, extractor balance.Extractor) error {
	if extractor == nil {
		extractor = balance.TextExtractor{}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	raw := make([]string, 0)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		raw = append(raw, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("读取资金文本失败: %w", err)
	}

	return writeBalances(w, raw, extractor.ExtractAll(raw))
}

func writeBalances(w io.Writer, raw []string, records []balance.Record) error {
	if _, err := io.WriteString(w, "\n--- Account Balance Information ---\n"); err != nil {
		return err
	}
	if len(records) == 0 {
		_, err := io.WriteString(w, "No account balance information found.\n")
		return err
	}

	for i, rec := range records {
		if i < len(raw) {
			if _, err := fmt.Fprintln(w, raw[i]); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\nKey Account Details:\n"); err != nil {
			return err
		}
		if err := balance.WriteReport(w, rec); err != nil {
			return err
		}
	}
	return nil
}

func writeExecutions(w io.Writer, trades []longport.Execution) error {
	if _, err := io.WriteString(w, "\nToday's Trades:\n"); err != nil {
		return err
	}
	if len(trades) == 0 {
		_, err := io.WriteString(w, "  No executions today.\n")
		return err
	}
	for _, t := range trades {
		if _, err := fmt.Fprintf(w, "  %s %s @ %s (order %s, trade %s, at %s)\n",
			t.Symbol, t.Quantity, t.Price, t.OrderID, t.TradeID, t.TradeDoneAt); err != nil {
			return err
		}
	}
	return nil
}

func writeIndentedJSON(w io.Writer, data json.RawMessage) error {
	if len(bytes.TrimSpace(data)) == 0 {
		_, err := io.WriteString(w, "null\n")
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("格式化响应失败: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
