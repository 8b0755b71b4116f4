package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dmitrijs2005/libcirc/internal/client/client"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

func (a *App) Users(ctx context.Context) error {
	resp := a.call(ctx, protocol.ActionGetAllUsers, nil)
	if resp == nil {
		return nil
	}

	var list []struct {
		ID             string  `json:"id"`
		Username       string  `json:"username"`
		Role           string  `json:"role"`
		Status         string  `json:"status"`
		Online         bool    `json:"online"`
		TotalFinesOwed float64 `json:"totalFinesOwed"`
	}
	if err := client.DecodeData(resp, &list); err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	for _, u := range list {
		line := fmt.Sprintf("%s | %s | %s | %s", u.ID, u.Username, u.Role, u.Status)
		if u.Online {
			line += " | online"
		}
		if u.TotalFinesOwed > 0 {
			line += fmt.Sprintf(" | owes %.2f", u.TotalFinesOwed)
		}
		printlnFn(line)
	}
	return nil
}

func (a *App) Records(ctx context.Context) error {
	if resp := a.call(ctx, protocol.ActionGetBorrowRecords, nil); resp != nil {
		a.printRecords(resp)
	}
	return nil
}

func (a *App) MarkLost(ctx context.Context) error {
	recordID, err := GetSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		return err
	}
	notes, err := GetSimpleText(a.reader, "Notes", os.Stdout)
	if err != nil {
		return err
	}
	a.call(ctx, protocol.ActionMarkLost, map[string]string{"recordId": recordID, "notes": notes})
	return nil
}

func (a *App) MarkDamaged(ctx context.Context) error {
	recordID, err := GetSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		return err
	}
	notes, err := GetSimpleText(a.reader, "Notes", os.Stdout)
	if err != nil {
		return err
	}
	pctText, err := GetSimpleText(a.reader, "Damage percent (1-100)", os.Stdout)
	if err != nil {
		return err
	}
	pct, err := strconv.Atoi(pctText)
	if err != nil {
		printlnFn("invalid percent")
		return err
	}

	a.call(ctx, protocol.ActionMarkDamaged, map[string]any{
		"recordId":      recordID,
		"notes":         notes,
		"damagePercent": pct,
	})
	return nil
}

func (a *App) ForceReturn(ctx context.Context) error {
	recordID, err := GetSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		return err
	}
	a.call(ctx, protocol.ActionForceReturn, map[string]string{"recordId": recordID})
	return nil
}

func (a *App) WaiveFine(ctx context.Context) error {
	fineID, err := GetSimpleText(a.reader, "Fine id", os.Stdout)
	if err != nil {
		return err
	}
	mode, err := GetSimpleText(a.reader, "Waive or cancel? (w/c)", os.Stdout)
	if err != nil {
		return err
	}
	a.call(ctx, protocol.ActionWaiveFine, map[string]any{"fineId": fineID, "cancel": mode == "c"})
	return nil
}

func (a *App) Sweep(ctx context.Context) error {
	a.call(ctx, protocol.ActionSweepOverdue, nil)
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	resp := a.call(ctx, protocol.ActionGetStats, nil)
	if resp == nil {
		return nil
	}

	var stats struct {
		TotalBooks      int `json:"totalBooks"`
		TotalCopies     int `json:"totalCopies"`
		AvailableCopies int `json:"availableCopies"`
		ActiveUsers     int `json:"activeUsers"`
		ActiveBorrows   int `json:"activeBorrows"`
		OverdueBorrows  int `json:"overdueBorrows"`
		PendingFines    int `json:"pendingFines"`
	}
	if err := client.DecodeData(resp, &stats); err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("books: %d, copies: %d (%d available)", stats.TotalBooks, stats.TotalCopies, stats.AvailableCopies))
	printlnFn(fmt.Sprintf("active users: %d, on loan: %d (%d overdue), pending fines: %d",
		stats.ActiveUsers, stats.ActiveBorrows, stats.OverdueBorrows, stats.PendingFines))
	return nil
}
