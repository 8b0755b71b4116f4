package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dmitrijs2005/libcirc/internal/client/client"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
)

type bookView struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	ISBN     string  `json:"isbn"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

type copyView struct {
	ID     string `json:"id"`
	BookID string `json:"bookId"`
	Status string `json:"status"`
	Shelf  string `json:"shelf"`
}

func (a *App) printBooks(resp *protocol.Response) {
	var list []bookView
	if err := client.DecodeData(resp, &list); err != nil {
		printlnFn("error:", err.Error())
		return
	}
	for _, b := range list {
		printlnFn(fmt.Sprintf("%s | %s by %s [%s] %.2f", b.ID, b.Title, b.Author, b.Category, b.Price))
	}
}

func (a *App) Books(ctx context.Context) error {
	if resp := a.call(ctx, protocol.ActionGetAllBooks, nil); resp != nil {
		a.printBooks(resp)
	}
	return nil
}

func (a *App) Search(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, "Title contains (empty to skip)", os.Stdout)
	if err != nil {
		return err
	}
	author, err := GetSimpleText(a.reader, "Author contains (empty to skip)", os.Stdout)
	if err != nil {
		return err
	}
	category, err := GetSimpleText(a.reader, "Category (empty to skip)", os.Stdout)
	if err != nil {
		return err
	}

	filter := map[string]string{}
	if title != "" {
		filter["title"] = title
	}
	if author != "" {
		filter["author"] = author
	}
	if category != "" {
		filter["category"] = category
	}

	if resp := a.call(ctx, protocol.ActionSearchBooks, filter); resp != nil {
		a.printBooks(resp)
	}
	return nil
}

func (a *App) Copies(ctx context.Context) error {
	bookID, err := GetSimpleText(a.reader, "Book id", os.Stdout)
	if err != nil {
		return err
	}

	resp := a.call(ctx, protocol.ActionGetCopiesByBook, map[string]string{"bookId": bookID})
	if resp == nil {
		return nil
	}

	var list []copyView
	if err := client.DecodeData(resp, &list); err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	for _, c := range list {
		printlnFn(fmt.Sprintf("%s | %s | shelf %s", c.ID, c.Status, c.Shelf))
	}
	return nil
}

func (a *App) AddBook(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, "Title", os.Stdout)
	if err != nil {
		return err
	}
	author, err := GetSimpleText(a.reader, "Author", os.Stdout)
	if err != nil {
		return err
	}
	isbn, err := GetSimpleText(a.reader, "ISBN", os.Stdout)
	if err != nil {
		return err
	}
	category, err := GetSimpleText(a.reader, "Category", os.Stdout)
	if err != nil {
		return err
	}
	priceText, err := GetSimpleText(a.reader, "Price", os.Stdout)
	if err != nil {
		return err
	}
	price, err := strconv.ParseFloat(priceText, 64)
	if err != nil {
		printlnFn("invalid price")
		return err
	}

	a.call(ctx, protocol.ActionCreateBook, bookView{
		Title:    title,
		Author:   author,
		ISBN:     isbn,
		Category: category,
		Price:    price,
	})
	return nil
}

func (a *App) AddCopy(ctx context.Context) error {
	bookID, err := GetSimpleText(a.reader, "Book id", os.Stdout)
	if err != nil {
		return err
	}
	shelf, err := GetSimpleText(a.reader, "Shelf", os.Stdout)
	if err != nil {
		return err
	}

	a.call(ctx, protocol.ActionAddCopy, map[string]string{"bookId": bookID, "shelf": shelf})
	return nil
}
