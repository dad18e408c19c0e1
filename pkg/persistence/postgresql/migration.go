package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Flow definitions; the graph is stored as JSON documents
			CREATE TABLE flows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_flows_created_at ON flows(created_at);

			CREATE TABLE leads (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				phone VARCHAR(32) NOT NULL,
				email VARCHAR(255),
				stage_id VARCHAR(255),
				fields JSONB NOT NULL DEFAULT '{}',
				last_contact_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_leads_phone ON leads(phone);
			CREATE INDEX idx_leads_stage_id ON leads(stage_id);

			CREATE TABLE lead_tags (
				lead_id VARCHAR(255) NOT NULL,
				tag_id VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (lead_id, tag_id)
			);

			CREATE TABLE callbacks (
				id VARCHAR(255) PRIMARY KEY,
				lead_id VARCHAR(255) NOT NULL,
				priority VARCHAR(50) NOT NULL,
				notes TEXT,
				scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
				status VARCHAR(50) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_callbacks_lead_status ON callbacks(lead_id, status);

			CREATE TABLE notes (
				id VARCHAR(255) PRIMARY KEY,
				lead_id VARCHAR(255) NOT NULL,
				author VARCHAR(255) NOT NULL,
				body TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_notes_lead_id ON notes(lead_id, created_at);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				flow_id VARCHAR(255) NOT NULL,
				lead_id VARCHAR(255) NOT NULL,
				current_node_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'waiting', 'completed', 'failed')),
				resume_at TIMESTAMP WITH TIME ZONE,
				last_error TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_flow_id ON executions(flow_id);
			CREATE INDEX idx_executions_due ON executions(resume_at) WHERE status = 'waiting';

			CREATE TABLE campaigns (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				periodicity VARCHAR(50) NOT NULL,
				days_of_week JSONB NOT NULL DEFAULT '[]',
				day_of_month INT NOT NULL DEFAULT 0,
				custom_interval_value INT NOT NULL DEFAULT 0,
				custom_interval_unit VARCHAR(50),
				send_time VARCHAR(5) NOT NULL,
				timezone VARCHAR(255) NOT NULL,
				start_date VARCHAR(10) NOT NULL,
				end_date VARCHAR(10),
				next_run_at TIMESTAMP WITH TIME ZONE,
				last_run_at TIMESTAMP WITH TIME ZONE,
				active BOOLEAN NOT NULL DEFAULT true,
				recipients TEXT[] NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_campaigns_due ON campaigns(next_run_at) WHERE active;
		`,
	}
}
