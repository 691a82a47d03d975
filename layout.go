package medal

import "path/filepath"

// Layout resolves the pipeline's fixed storage convention. Raw inputs live
// under Base (transactions/<channel>/ directories and the product catalog);
// tables live under the output root, which defaults to <base>/output and can
// be pointed elsewhere when the base is remote.
type Layout struct {
	Base   string
	Output string
}

func (l Layout) outRoot() string {
	if l.Output != "" {
		return l.Output
	}
	return filepath.Join(l.Base, "output")
}

// ChannelDir is the raw transaction directory for one channel.
func (l Layout) ChannelDir(channel string) string {
	return filepath.Join(l.Base, "transactions", channel)
}

// CatalogFile is the product reference file.
func (l Layout) CatalogFile() string {
	return filepath.Join(l.Base, "products", "product_catalog.csv")
}

// Bronze is the raw-union table path.
func (l Layout) Bronze() string {
	return filepath.Join(l.outRoot(), "bronze", "transactions")
}

// Silver is the enriched table path.
func (l Layout) Silver() string {
	return filepath.Join(l.outRoot(), "silver", "transactions")
}

// Gold is the aggregate table path.
func (l Layout) Gold() string {
	return filepath.Join(l.outRoot(), "gold", "sales_summary")
}

// Metastore is the bolt file binding table names to paths.
func (l Layout) Metastore() string {
	return filepath.Join(l.outRoot(), "metastore.db")
}
