package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/yamakishi/tehai-ops/internal/entity"
	"github.com/yamakishi/tehai-ops/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

type ExportService struct {
	orderRepo  *repository.OrderRepository
	detailRepo *repository.DetailRepository
	logger     *zap.Logger
}

func NewExportService(repos *repository.Repositories, logger *zap.Logger) *ExportService {
	return &ExportService{orderRepo: repos.Order, detailRepo: repos.Detail, logger: logger}
}

var pickupHeaders = []string{
	"No", "納期", "仕入先", "発注番号", "数量", "単位",
	"品名", "仕様１", "仕様２", "材質", "区分", "受入", "受入日", "備考",
}

// PickupList 1ユニットのピッキングリストxlsx。
// 親子ペアは親の直後に子が来る表示順のまま出力する。
func (s *ExportService) PickupList(ctx context.Context, orderID string) (*excelize.File, string, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, "", ErrOrderNotFound
	}
	details, err := s.detailRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "ピッキングリスト"
	f.SetSheetName("Sheet1", sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	f.SetCellValue(sheet, "A1", fmt.Sprintf("製番: %s  ユニット: %s", order.Seiban, unitLabel(order.Unit)))
	f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	f.SetCellValue(sheet, "A2", fmt.Sprintf("品名: %s  客先: %s  出力日: %s",
		order.ProductName, order.CustomerAbbr, time.Now().Format("2006/01/02")))

	writeDetailSheet(f, sheet, 4, details)

	colWidths := []float64{5, 10, 14, 12, 7, 6, 24, 24, 16, 10, 10, 6, 10, 20}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("ピッキングリスト_%s_%s.xlsx", order.Seiban, unitLabel(order.Unit))
	return f, filename, nil
}

// SeibanWorkbook 製番全体のブック。先頭に納期一覧（ガントまがいの俯瞰シート）、
// 以降にユニットごとのシートを並べる。
func (s *ExportService) SeibanWorkbook(ctx context.Context, seiban string) (*excelize.File, string, error) {
	orders, err := s.orderRepo.ListBySeiban(ctx, seiban, false)
	if err != nil {
		return nil, "", err
	}
	if len(orders) == 0 {
		return nil, "", ErrOrderNotFound
	}

	f := excelize.NewFile()
	overview := "納期一覧"
	f.SetSheetName("Sheet1", overview)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range []string{"ユニット", "明細数", "受入済", "ステータス", "最遅納期"} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(overview, col+"1", h)
		f.SetCellStyle(overview, col+"1", col+"1", headerStyle)
	}

	for i, order := range orders {
		details, err := s.detailRepo.ListByOrderID(ctx, order.ID)
		if err != nil {
			return nil, "", err
		}

		received := 0
		latest := ""
		for _, d := range details {
			if d.IsReceived {
				received++
			}
			if d.DeliveryDate > latest {
				latest = d.DeliveryDate
			}
		}
		row := i + 2
		f.SetCellValue(overview, fmt.Sprintf("A%d", row), unitLabel(order.Unit))
		f.SetCellValue(overview, fmt.Sprintf("B%d", row), len(details))
		f.SetCellValue(overview, fmt.Sprintf("C%d", row), received)
		f.SetCellValue(overview, fmt.Sprintf("D%d", row), statusLabel(order.Status))
		f.SetCellValue(overview, fmt.Sprintf("E%d", row), latest)

		sheet := sheetNameFor(order.Unit, i)
		f.NewSheet(sheet)
		writeDetailSheet(f, sheet, 1, details)
	}

	for i, w := range []float64{20, 8, 8, 12, 12} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(overview, col, col, w)
	}

	filename := fmt.Sprintf("手配リスト_%s.xlsx", seiban)
	return f, filename, nil
}

// writeDetailSheet 明細テーブルをheaderRow行目から書き込む
func writeDetailSheet(f *excelize.File, sheet string, headerRow int, details []entity.OrderDetail) {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range pickupHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, headerRow)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for idx, d := range details {
		row := headerRow + 1 + idx
		itemName := d.ItemName
		if d.ParentID != nil {
			// 子（ブランク材）は親にぶら下がって見えるよう字下げ
			itemName = "　└ " + itemName
		}
		received := ""
		if d.IsReceived {
			received = "✓"
		}
		receivedAt := ""
		if d.ReceivedAt != nil {
			receivedAt = d.ReceivedAt.Format("2006/01/02")
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), idx+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), d.DeliveryDate)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), d.Supplier)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), d.OrderNumber)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), d.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), d.UnitMeasure)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), itemName)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), d.Spec1)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), d.Spec2)
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), d.Material)
		f.SetCellValue(sheet, fmt.Sprintf("K%d", row), d.TypeLabel)
		f.SetCellValue(sheet, fmt.Sprintf("L%d", row), received)
		f.SetCellValue(sheet, fmt.Sprintf("M%d", row), receivedAt)
		f.SetCellValue(sheet, fmt.Sprintf("N%d", row), d.Remarks)
	}
}

func unitLabel(unit string) string {
	if unit == "" || unit == "-" {
		return "（材質なし）"
	}
	return unit
}

func statusLabel(status string) string {
	switch status {
	case entity.StatusCompleted:
		return "納品完了"
	case entity.StatusInProgress:
		return "納品中"
	default:
		return "受入準備前"
	}
}

// sheetNameFor Excelのシート名制約（31文字・記号制限）に収める
func sheetNameFor(unit string, index int) string {
	name := unitLabel(unit)
	runes := []rune(name)
	if len(runes) > 25 {
		name = string(runes[:25])
	}
	return fmt.Sprintf("%d_%s", index+1, name)
}

// LabelCSV ラベルプリンタ向けのShift_JIS CSV。1明細1行で
// 発注番号・品名・仕様・数量・製番を出す。
func (s *ExportService) LabelCSV(ctx context.Context, orderID string) ([]byte, string, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, "", ErrOrderNotFound
	}
	details, err := s.detailRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	sjis := transform.NewWriter(&buf, japanese.ShiftJIS.NewEncoder())
	w := csv.NewWriter(sjis)
	w.UseCRLF = true // ラベルプリンタはWindows機

	if err := w.Write([]string{"製番", "ユニット", "発注番号", "品名", "仕様１", "数量", "納期"}); err != nil {
		return nil, "", err
	}
	for _, d := range details {
		record := []string{
			order.Seiban,
			unitLabel(order.Unit),
			d.OrderNumber,
			d.ItemName,
			d.Spec1,
			fmt.Sprintf("%d", d.Quantity),
			d.DeliveryDate,
		}
		if err := w.Write(record); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}
	if err := sjis.Close(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("labels_%s_%s.csv", order.Seiban, order.Unit)
	return buf.Bytes(), filename, nil
}
