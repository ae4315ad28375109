package cvr

import "context"

// Load reads a CVR table, choosing the adapter from the file extension.
func Load(ctx context.Context, path string) (*Table, error) {
	if IsParquet(path) {
		return ReadParquetFile(ctx, path)
	}
	return ReadCSVFile(path)
}
