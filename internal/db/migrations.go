package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM ('pending', 'signed', 'expired');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS business_settings (
		user_id UUID PRIMARY KEY,
		business_name VARCHAR(255) NOT NULL DEFAULT '',
		person_type VARCHAR(16) NOT NULL DEFAULT 'fisica',
		cpf VARCHAR(32) NOT NULL DEFAULT '',
		cnpj VARCHAR(32) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(64) NOT NULL DEFAULT '',
		address VARCHAR(255) NOT NULL DEFAULT '',
		city VARCHAR(128) NOT NULL DEFAULT '',
		state VARCHAR(64) NOT NULL DEFAULT '',
		zip_code VARCHAR(32) NOT NULL DEFAULT '',
		pix_key VARCHAR(255) NOT NULL DEFAULT '',
		bank_name VARCHAR(128) NOT NULL DEFAULT '',
		bank_agency VARCHAR(32) NOT NULL DEFAULT '',
		bank_account VARCHAR(64) NOT NULL DEFAULT '',
		bank_account_type VARCHAR(32) NOT NULL DEFAULT '',
		signature_base64 TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS contract_templates (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL,
		name VARCHAR(255) NOT NULL,
		content_text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contract_templates_user_id ON contract_templates (user_id);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		token VARCHAR(64) NOT NULL,
		user_id UUID NOT NULL,
		lead_id UUID,
		template_id UUID NOT NULL REFERENCES contract_templates(id),
		content_override TEXT NOT NULL DEFAULT '',
		lead_data_json JSONB NOT NULL DEFAULT '{}',
		user_data_json JSONB NOT NULL DEFAULT '{}',
		payment_details_json JSONB,
		user_signature_base64 TEXT NOT NULL,
		client_data_json JSONB,
		signature_base64 TEXT,
		client_ip VARCHAR(64),
		status contract_status NOT NULL DEFAULT 'pending',
		expires_at TIMESTAMPTZ NOT NULL,
		signed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contracts_token ON contracts (token);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_user_id ON contracts (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
	`CREATE TABLE IF NOT EXISTS receivables (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id),
		sequence_number INT NOT NULL,
		total_count INT NOT NULL,
		amount NUMERIC(18,2) NOT NULL,
		due_date DATE NOT NULL,
		description VARCHAR(255) NOT NULL,
		payment_method VARCHAR(128) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_receivables_contract_seq ON receivables (contract_id, sequence_number);`,
	`CREATE INDEX IF NOT EXISTS idx_receivables_contract_id ON receivables (contract_id);`,
	`CREATE INDEX IF NOT EXISTS idx_receivables_due_date ON receivables (due_date);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
