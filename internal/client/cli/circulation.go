package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/libcirc/internal/client/client"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

type recordView struct {
	ID                 string  `json:"id"`
	BookID             string  `json:"bookId"`
	CopyID             string  `json:"copyId"`
	BorrowDate         string  `json:"borrowDate"`
	ExpectedReturnDate string  `json:"expectedReturnDate"`
	Status             string  `json:"status"`
	Extended           bool    `json:"extended"`
	FineAmount         float64 `json:"fineAmount"`
}

type fineView struct {
	ID       string  `json:"id"`
	RecordID string  `json:"recordId"`
	Type     string  `json:"type"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
}

func (a *App) printRecords(resp *protocol.Response) {
	var list []recordView
	if err := client.DecodeData(resp, &list); err != nil {
		printlnFn("error:", err.Error())
		return
	}
	for _, r := range list {
		line := fmt.Sprintf("%s | copy %s | %s | due %s", r.ID, r.CopyID, r.Status, r.ExpectedReturnDate)
		if r.Extended {
			line += " (extended)"
		}
		if r.FineAmount > 0 {
			line += fmt.Sprintf(" fine %.2f", r.FineAmount)
		}
		printlnFn(line)
	}
}

func (a *App) Borrow(ctx context.Context) error {
	bookID, err := GetSimpleText(a.reader, "Book id", os.Stdout)
	if err != nil {
		return err
	}
	copyID, err := GetSimpleText(a.reader, "Copy id", os.Stdout)
	if err != nil {
		return err
	}

	a.call(ctx, protocol.ActionBorrowBook, map[string]string{"bookId": bookID, "copyId": copyID})
	return nil
}

func (a *App) Return(ctx context.Context) error {
	recordID, err := GetSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		return err
	}
	a.call(ctx, protocol.ActionReturnBook, map[string]string{"recordId": recordID})
	return nil
}

func (a *App) Extend(ctx context.Context) error {
	recordID, err := GetSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		return err
	}
	a.call(ctx, protocol.ActionExtendBorrow, map[string]string{"recordId": recordID})
	return nil
}

func (a *App) Current(ctx context.Context) error {
	if resp := a.call(ctx, protocol.ActionGetCurrentBorrows, nil); resp != nil {
		a.printRecords(resp)
	}
	return nil
}

func (a *App) History(ctx context.Context) error {
	if resp := a.call(ctx, protocol.ActionGetBorrowHistory, nil); resp != nil {
		a.printRecords(resp)
	}
	return nil
}

func (a *App) Fines(ctx context.Context) error {
	resp := a.call(ctx, protocol.ActionGetMyFines, nil)
	if resp == nil {
		return nil
	}

	var list []fineView
	if err := client.DecodeData(resp, &list); err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	for _, f := range list {
		printlnFn(fmt.Sprintf("%s | %s | %.2f | %s", f.ID, f.Type, f.Amount, f.Status))
	}
	return nil
}

func (a *App) PayFine(ctx context.Context) error {
	fineID, err := GetSimpleText(a.reader, "Fine id", os.Stdout)
	if err != nil {
		return err
	}
	a.call(ctx, protocol.ActionPayFine, map[string]string{"fineId": fineID})
	return nil
}
