package tcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/protocol"
	"github.com/dmitrijs2005/libcirc/internal/server/catalog"
	"github.com/dmitrijs2005/libcirc/internal/server/identity"
	"github.com/dmitrijs2005/libcirc/internal/server/models"
	"github.com/dmitrijs2005/libcirc/internal/server/repositories/books"
)

// authClass decides which callers may invoke an action.
type authClass int

const (
	authPublic authClass = iota // no session required
	authUser                    // any live session
	authAdmin                   // live session with the ADMIN role
)

type actionFunc func(ctx context.Context, h *handler, caller *models.Identity, data json.RawMessage) (any, string, error)

type action struct {
	class authClass
	fn    actionFunc
}

func buildActionTable() map[string]action {
	return map[string]action{
		protocol.ActionPing:     {authPublic, doPing},
		protocol.ActionLogin:    {authPublic, doLogin},
		protocol.ActionRegister: {authPublic, doRegister},
		protocol.ActionLogout:   {authUser, doLogout},

		protocol.ActionGetAllUsers: {authAdmin, doGetAllUsers},
		protocol.ActionGetUserByID: {authUser, doGetUserByID},
		protocol.ActionCreateUser:  {authAdmin, doCreateUser},
		protocol.ActionUpdateUser:  {authUser, doUpdateUser},
		protocol.ActionDeleteUser:  {authAdmin, doDeleteUser},

		protocol.ActionGetAllBooks:     {authUser, doGetAllBooks},
		protocol.ActionGetBookByID:     {authUser, doGetBookByID},
		protocol.ActionSearchBooks:     {authUser, doSearchBooks},
		protocol.ActionCreateBook:      {authAdmin, doCreateBook},
		protocol.ActionUpdateBook:      {authAdmin, doUpdateBook},
		protocol.ActionDeleteBook:      {authAdmin, doDeleteBook},
		protocol.ActionAddCopy:         {authAdmin, doAddCopy},
		protocol.ActionGetCopiesByBook: {authUser, doGetCopiesByBook},

		protocol.ActionBorrowBook:        {authUser, doBorrowBook},
		protocol.ActionReturnBook:        {authUser, doReturnBook},
		protocol.ActionExtendBorrow:      {authUser, doExtendBorrow},
		protocol.ActionGetBorrowHistory:  {authUser, doGetBorrowHistory},
		protocol.ActionGetCurrentBorrows: {authUser, doGetCurrentBorrows},
		protocol.ActionGetBorrowRecords:  {authAdmin, doGetBorrowRecords},
		protocol.ActionMarkLost:          {authAdmin, doMarkLost},
		protocol.ActionMarkDamaged:       {authAdmin, doMarkDamaged},
		protocol.ActionForceReturn:       {authAdmin, doForceReturn},
		protocol.ActionSweepOverdue:      {authAdmin, doSweepOverdue},

		protocol.ActionGetMyFines: {authUser, doGetMyFines},
		protocol.ActionPayFine:    {authUser, doPayFine},
		protocol.ActionWaiveFine:  {authAdmin, doWaiveFine},

		protocol.ActionGetStats: {authAdmin, doGetStats},
	}
}

func decode(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing request data", common.ErrValidation)
	}
	if err := protocol.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: bad request data", common.ErrValidation)
	}
	return nil
}

// --- public ---

func doPing(_ context.Context, _ *handler, _ *models.Identity, _ json.RawMessage) (any, string, error) {
	return nil, "pong", nil
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func doLogin(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p credentialsPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}

	ident, err := h.srv.deps.Identity.VerifyCredentials(ctx, p.Username, p.Password)
	if err != nil {
		return nil, "", err
	}

	session, token, err := h.srv.deps.Registry.Authenticate(ctx, ident)
	if err != nil {
		return nil, "", err
	}

	// a re-login on the same connection abandons whatever session it held
	// before; without this the old identity stays registered as active with
	// no connection owning it
	prev := h.currentSessionID()
	h.setSession(session.ID, token)
	if prev != "" && prev != session.ID {
		h.srv.deps.Registry.Terminate(ctx, prev)
	}

	return map[string]any{"sessionId": token, "session": session, "user": ident}, "welcome back, " + ident.Username, nil
}

func doRegister(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p credentialsPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}

	ident, err := h.srv.deps.Identity.Register(ctx, p.Username, p.Password)
	if err != nil {
		return nil, "", err
	}
	return ident, "account created, you can log in now", nil
}

func doLogout(ctx context.Context, h *handler, _ *models.Identity, _ json.RawMessage) (any, string, error) {
	if sid := h.currentSessionID(); sid != "" {
		h.srv.deps.Registry.Terminate(ctx, sid)
		h.setSession("", "")
	}
	return nil, "logged out", nil
}

// --- users ---

type idPayload struct {
	ID string `json:"id"`
}

func doGetAllUsers(ctx context.Context, h *handler, _ *models.Identity, _ json.RawMessage) (any, string, error) {
	users, err := h.srv.deps.Identity.List(ctx)
	if err != nil {
		return nil, "", err
	}
	return users, fmt.Sprintf("%d users", len(users)), nil
}

func doGetUserByID(ctx context.Context, h *handler, caller *models.Identity, data json.RawMessage) (any, string, error) {
	var p idPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	// self-lookup is allowed; other accounts are admin-only
	if p.ID != caller.ID && !caller.IsAdmin() {
		return nil, "", fmt.Errorf("%w: cannot view other accounts", common.ErrAuthorization)
	}
	ident, err := h.srv.deps.Identity.GetByID(ctx, p.ID)
	if err != nil {
		return nil, "", err
	}
	return ident, "ok", nil
}

type createUserPayload struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

func doCreateUser(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p createUserPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	ident, err := h.srv.deps.Identity.CreateUser(ctx, p.Username, p.Password, p.Role)
	if err != nil {
		return nil, "", err
	}
	return ident, "user created", nil
}

type updateUserPayload struct {
	ID string `json:"id"`
	identity.UpdateParams
}

func doUpdateUser(ctx context.Context, h *handler, caller *models.Identity, data json.RawMessage) (any, string, error) {
	var p updateUserPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	if p.ID == "" {
		p.ID = caller.ID
	}
	if !caller.IsAdmin() {
		if p.ID != caller.ID {
			return nil, "", fmt.Errorf("%w: cannot update other accounts", common.ErrAuthorization)
		}
		if p.Role != nil || p.Status != nil {
			return nil, "", fmt.Errorf("%w: role and status changes require admin", common.ErrAuthorization)
		}
	}
	ident, err := h.srv.deps.Identity.Update(ctx, p.ID, p.UpdateParams)
	if err != nil {
		return nil, "", err
	}
	return ident, "user updated", nil
}

func doDeleteUser(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p idPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	if err := h.srv.deps.Identity.Delete(ctx, p.ID); err != nil {
		return nil, "", err
	}
	return nil, "user deleted", nil
}

// --- catalog ---

func doGetAllBooks(ctx context.Context, h *handler, _ *models.Identity, _ json.RawMessage) (any, string, error) {
	list, err := h.srv.deps.Catalog.ListBooks(ctx)
	if err != nil {
		return nil, "", err
	}
	return list, fmt.Sprintf("%d books", len(list)), nil
}

func doGetBookByID(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p idPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	book, err := h.srv.deps.Catalog.GetBook(ctx, p.ID)
	if err != nil {
		return nil, "", err
	}
	return book, "ok", nil
}

func doSearchBooks(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var filter books.SearchFilter
	if len(data) > 0 {
		if err := protocol.Unmarshal(data, &filter); err != nil {
			return nil, "", fmt.Errorf("%w: bad request data", common.ErrValidation)
		}
	}
	list, err := h.srv.deps.Catalog.SearchBooks(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	return list, fmt.Sprintf("%d books found", len(list)), nil
}

type bookPayload struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	ISBN     string  `json:"isbn"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

func doCreateBook(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p bookPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	book, err := h.srv.deps.Catalog.CreateBook(ctx, bookParams(p))
	if err != nil {
		return nil, "", err
	}
	return book, "book created", nil
}

func doUpdateBook(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p bookPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	book, err := h.srv.deps.Catalog.UpdateBook(ctx, p.ID, bookParams(p))
	if err != nil {
		return nil, "", err
	}
	return book, "book updated", nil
}

func doDeleteBook(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p idPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	if err := h.srv.deps.Catalog.DeleteBook(ctx, p.ID); err != nil {
		return nil, "", err
	}
	return nil, "book deleted", nil
}

type addCopyPayload struct {
	BookID string `json:"bookId"`
	Shelf  string `json:"shelf"`
}

func doAddCopy(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p addCopyPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	c, err := h.srv.deps.Catalog.AddCopy(ctx, p.BookID, p.Shelf)
	if err != nil {
		return nil, "", err
	}
	return c, "copy added", nil
}

type bookIDPayload struct {
	BookID string `json:"bookId"`
}

func doGetCopiesByBook(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p bookIDPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	list, err := h.srv.deps.Catalog.ListCopies(ctx, p.BookID)
	if err != nil {
		return nil, "", err
	}
	return list, fmt.Sprintf("%d copies", len(list)), nil
}

// --- circulation ---

type borrowPayload struct {
	BookID string `json:"bookId"`
	CopyID string `json:"copyId"`
}

func doBorrowBook(ctx context.Context, h *handler, caller *models.Identity, data json.RawMessage) (any, string, error) {
	var p borrowPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	record, err := h.srv.deps.Engine.Borrow(ctx, caller.ID, p.BookID, p.CopyID)
	if err != nil {
		return nil, "", err
	}
	return record, "book borrowed, due " + record.ExpectedReturnDate.Format("2006-01-02"), nil
}

type recordPayload struct {
	RecordID string `json:"recordId"`
}

// ownRecord loads a record and checks the caller may act on it: owners
// always, staff via the dedicated admin actions.
func ownRecord(ctx context.Context, h *handler, caller *models.Identity, recordID string) error {
	rec, err := h.srv.deps.Engine.GetRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if rec.IdentityID != caller.ID && !caller.IsAdmin() {
		return fmt.Errorf("%w: record belongs to another account", common.ErrAuthorization)
	}
	return nil
}

func doReturnBook(ctx context.Context, h *handler, caller *models.Identity, data json.RawMessage) (any, string, error) {
	var p recordPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	if err := ownRecord(ctx, h, caller, p.RecordID); err != nil {
		return nil, "", err
	}
	record, err := h.srv.deps.Engine.Return(ctx, p.RecordID)
	if err != nil {
		return nil, "", err
	}
	return record, "book returned", nil
}

func doExtendBorrow(ctx context.Context, h *handler, caller *models.Identity, data json.RawMessage) (any, string, error) {
	var p recordPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	if err := ownRecord(ctx, h, caller, p.RecordID); err != nil {
		return nil, "", err
	}
	record, err := h.srv.deps.Engine.Extend(ctx, p.RecordID)
	if err != nil {
		return nil, "", err
	}
	return record, "loan extended, now due " + record.ExpectedReturnDate.Format("2006-01-02"), nil
}

type historyPayload struct {
	UserID string `json:"userId,omitempty"`
}

func doGetBorrowHistory(ctx context.Context, h *handler, caller *models.Identity, data json.RawMessage) (any, string, error) {
	p := historyPayload{}
	if len(data) > 0 {
		_ = protocol.Unmarshal(data, &p)
	}
	target := caller.ID
	if p.UserID != "" && p.UserID != caller.ID {
		if !caller.IsAdmin() {
			return nil, "", fmt.Errorf("%w: cannot view other accounts", common.ErrAuthorization)
		}
		target = p.UserID
	}
	list, err := h.srv.deps.Engine.History(ctx, target)
	if err != nil {
		return nil, "", err
	}
	return list, fmt.Sprintf("%d records", len(list)), nil
}

func doGetCurrentBorrows(ctx context.Context, h *handler, caller *models.Identity, _ json.RawMessage) (any, string, error) {
	list, err := h.srv.deps.Engine.CurrentBorrows(ctx, caller.ID)
	if err != nil {
		return nil, "", err
	}
	return list, fmt.Sprintf("%d books on loan", len(list)), nil
}

func doGetBorrowRecords(ctx context.Context, h *handler, _ *models.Identity, _ json.RawMessage) (any, string, error) {
	list, err := h.srv.deps.Engine.AllRecords(ctx)
	if err != nil {
		return nil, "", err
	}
	return list, fmt.Sprintf("%d records", len(list)), nil
}

type lostPayload struct {
	RecordID string `json:"recordId"`
	Notes    string `json:"notes"`
}

func doMarkLost(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p lostPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	record, err := h.srv.deps.Engine.MarkLost(ctx, p.RecordID, p.Notes)
	if err != nil {
		return nil, "", err
	}
	return record, fmt.Sprintf("marked lost, fine %.2f", record.FineAmount), nil
}

type damagedPayload struct {
	RecordID      string `json:"recordId"`
	Notes         string `json:"notes"`
	DamagePercent int    `json:"damagePercent"`
}

func doMarkDamaged(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p damagedPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	record, err := h.srv.deps.Engine.MarkDamaged(ctx, p.RecordID, p.Notes, p.DamagePercent)
	if err != nil {
		return nil, "", err
	}
	return record, fmt.Sprintf("marked damaged, fine %.2f", record.FineAmount), nil
}

func doForceReturn(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p recordPayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	record, err := h.srv.deps.Engine.ForceReturn(ctx, p.RecordID)
	if err != nil {
		return nil, "", err
	}
	return record, "book returned by staff", nil
}

func doSweepOverdue(ctx context.Context, h *handler, _ *models.Identity, _ json.RawMessage) (any, string, error) {
	n, err := h.srv.deps.Engine.SweepOverdue(ctx)
	if err != nil {
		return nil, "", err
	}
	return map[string]int{"promoted": n}, fmt.Sprintf("%d records now overdue", n), nil
}

// --- fines ---

func doGetMyFines(ctx context.Context, h *handler, caller *models.Identity, _ json.RawMessage) (any, string, error) {
	list, err := h.srv.deps.Engine.FinesOf(ctx, caller.ID)
	if err != nil {
		return nil, "", err
	}
	return list, fmt.Sprintf("%d fines", len(list)), nil
}

type finePayload struct {
	FineID string `json:"fineId"`
	Cancel bool   `json:"cancel,omitempty"`
}

func doPayFine(ctx context.Context, h *handler, caller *models.Identity, data json.RawMessage) (any, string, error) {
	var p finePayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	fine, err := h.srv.deps.Engine.PayFine(ctx, caller.ID, p.FineID)
	if err != nil {
		return nil, "", err
	}
	return fine, "fine paid", nil
}

func doWaiveFine(ctx context.Context, h *handler, _ *models.Identity, data json.RawMessage) (any, string, error) {
	var p finePayload
	if err := decode(data, &p); err != nil {
		return nil, "", err
	}
	if p.Cancel {
		fine, err := h.srv.deps.Engine.CancelFine(ctx, p.FineID)
		if err != nil {
			return nil, "", err
		}
		return fine, "fine cancelled", nil
	}
	fine, err := h.srv.deps.Engine.WaiveFine(ctx, p.FineID)
	if err != nil {
		return nil, "", err
	}
	return fine, "fine waived", nil
}

// --- admin ---

func doGetStats(ctx context.Context, h *handler, _ *models.Identity, _ json.RawMessage) (any, string, error) {
	stats, err := h.srv.deps.Engine.Stats(ctx)
	if err != nil {
		return nil, "", err
	}
	return stats, "ok", nil
}

func bookParams(p bookPayload) catalog.BookParams {
	return catalog.BookParams{
		Title:    p.Title,
		Author:   p.Author,
		ISBN:     p.ISBN,
		Category: p.Category,
		Price:    p.Price,
	}
}
