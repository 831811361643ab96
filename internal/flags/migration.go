package flags

// Migration option bits. Each one independently selects what user state is
// carried over when a favorite moves to another source. The whole set is
// persisted as one integer preference.
const (
	MigrateChapters    int64 = 0b0001
	MigrateCategories  int64 = 0b0010
	MigrateTracks      int64 = 0b0100
	MigrateCustomCover int64 = 0b1000
)

// DefaultMigrationFlags carries everything.
const DefaultMigrationFlags = MigrateChapters | MigrateCategories | MigrateTracks | MigrateCustomCover
