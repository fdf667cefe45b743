package domain

// PathCount é um registro da fonte de analytics: um path e seu total de requests.
type PathCount struct {
	Path     string
	Requests int64
}

// ContentEntry é um item do ranking. Sempre derivado de um PathCount.
//
// O campo JSON "views" mantém o formato que o front-end já consome.
type ContentEntry struct {
	Path      string `json:"path"`
	ViewCount int64  `json:"views"`
	Title     string `json:"title"`
}
