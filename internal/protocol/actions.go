package protocol

// Action names understood by the server dispatch table.
const (
	ActionLogin    = "login"
	ActionLogout   = "logout"
	ActionRegister = "register"
	ActionPing     = "ping"

	ActionGetAllUsers = "getAllUsers"
	ActionGetUserByID = "getUserById"
	ActionCreateUser  = "createUser"
	ActionUpdateUser  = "updateUser"
	ActionDeleteUser  = "deleteUser"

	ActionGetAllBooks     = "getAllBooks"
	ActionGetBookByID     = "getBookById"
	ActionSearchBooks     = "searchBooks"
	ActionCreateBook      = "createBook"
	ActionUpdateBook      = "updateBook"
	ActionDeleteBook      = "deleteBook"
	ActionAddCopy         = "addCopy"
	ActionGetCopiesByBook = "getCopiesByBook"

	ActionBorrowBook        = "borrowBook"
	ActionReturnBook        = "returnBook"
	ActionExtendBorrow      = "extendBorrow"
	ActionGetBorrowHistory  = "getBorrowHistory"
	ActionGetCurrentBorrows = "getCurrentBorrows"
	ActionGetBorrowRecords  = "getBorrowRecords"
	ActionMarkLost          = "markLost"
	ActionMarkDamaged       = "markDamaged"
	ActionForceReturn       = "forceReturn"
	ActionSweepOverdue      = "sweepOverdue"

	ActionGetMyFines = "getMyFines"
	ActionPayFine    = "payFine"
	ActionWaiveFine  = "waiveFine"

	ActionGetStats = "getStats"
)

// Event types published by the change broadcaster.
const (
	EventBookAdded         = "book-added"
	EventBookUpdated       = "book-updated"
	EventBookDeleted       = "book-deleted"
	EventCopyAdded         = "copy-added"
	EventCopyUpdated       = "copy-updated"
	EventBorrowed          = "borrowed"
	EventReturned          = "returned"
	EventRecordUpdated     = "record-updated"
	EventUserAdded         = "user-added"
	EventUserUpdated       = "user-updated"
	EventUserDeleted       = "user-deleted"
	EventSessionTerminated = "session-terminated"
	EventRefresh           = "refresh"
)
