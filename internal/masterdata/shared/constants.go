package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 50

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"
)
