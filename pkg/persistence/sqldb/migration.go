package sqldb

func migrations(dialect Dialect) map[int]string {
	ddl := map[int]string{
		1: `
		CREATE TABLE IF NOT EXISTS operations (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			name TEXT NOT NULL,
			code TEXT NOT NULL,
			icon TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			is_final BOOLEAN NOT NULL DEFAULT FALSE,
			expertise_id TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (organization_id, code)
		);

		CREATE INDEX IF NOT EXISTS idx_operations_organization_name ON operations(organization_id, name);

		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			name TEXT NOT NULL,
			workflow_id TEXT
		);

		CREATE TABLE IF NOT EXISTS project_operations (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			operation_id TEXT NOT NULL REFERENCES operations(id) ON DELETE CASCADE,
			PRIMARY KEY (project_id, operation_id)
		);

		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL UNIQUE REFERENCES projects(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS workflow_nodes (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			operation_id TEXT REFERENCES operations(id),
			position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
			position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
			estimated_time INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_workflow_nodes_workflow_id ON workflow_nodes(workflow_id);
		CREATE INDEX IF NOT EXISTS idx_workflow_nodes_operation_id ON workflow_nodes(operation_id);

		CREATE TABLE IF NOT EXISTS workflow_edges (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
			source_id TEXT NOT NULL REFERENCES workflow_nodes(id),
			target_id TEXT NOT NULL REFERENCES workflow_nodes(id),
			label TEXT NOT NULL DEFAULT '',
			data JSONB,
			usage_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (workflow_id, source_id, target_id)
		);

		CREATE INDEX IF NOT EXISTS idx_workflow_edges_workflow_id ON workflow_edges(workflow_id);
		`,
		2: `
		CREATE TABLE IF NOT EXISTS command_projects (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			target INTEGER NOT NULL DEFAULT 0,
			done INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS sprints (
			id TEXT PRIMARY KEY,
			command_project_id TEXT NOT NULL UNIQUE REFERENCES command_projects(id) ON DELETE CASCADE,
			target INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS plannings (
			id TEXT PRIMARY KEY,
			command_project_id TEXT NOT NULL REFERENCES command_projects(id) ON DELETE CASCADE,
			operation_id TEXT NOT NULL,
			operator_id TEXT NOT NULL DEFAULT '',
			post_id TEXT NOT NULL DEFAULT '',
			start_at TIMESTAMPTZ NOT NULL,
			end_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_plannings_command_project_id ON plannings(command_project_id);

		CREATE TABLE IF NOT EXISTS operation_histories (
			id TEXT PRIMARY KEY,
			planning_id TEXT NOT NULL REFERENCES plannings(id) ON DELETE CASCADE,
			count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_operation_histories_planning_created ON operation_histories(planning_id, created_at);
		`,
	}

	for version, statement := range ddl {
		ddl[version] = dialect.Schema(statement)
	}

	return ddl
}
