package autofillRepository

const (
	queryUpsertAutofillEntry = `
		INSERT INTO autofill_entries (
			id,
			user_id,
			field_name,
			field_type,
			value,
			label,
			confidence,
			usage_count,
			last_used_at,
			created_at
		) VALUES (
			:id,
			:user_id,
			:field_name,
			:field_type,
			:value,
			:label,
			:confidence,
			1,
			:last_used_at,
			:created_at
		)
		ON CONFLICT (user_id, field_name, value) DO UPDATE SET
			usage_count  = autofill_entries.usage_count + 1,
			last_used_at = EXCLUDED.last_used_at,
			confidence   = GREATEST(autofill_entries.confidence, EXCLUDED.confidence),
			label        = EXCLUDED.label,
			field_type   = EXCLUDED.field_type
	`

	queryTopEntriesByFieldName = `
		SELECT
			id,
			user_id,
			field_name,
			field_type,
			value,
			label,
			confidence,
			usage_count,
			last_used_at,
			created_at
		FROM autofill_entries
		WHERE user_id = :user_id
			AND field_name = :field_name
		ORDER BY confidence DESC, usage_count DESC, last_used_at DESC
		LIMIT :limit
	`

	queryTopEntriesByFieldType = `
		SELECT
			id,
			user_id,
			field_name,
			field_type,
			value,
			label,
			confidence,
			usage_count,
			last_used_at,
			created_at
		FROM autofill_entries
		WHERE user_id = :user_id
			AND field_type = :field_type
		ORDER BY confidence DESC, usage_count DESC, last_used_at DESC
		LIMIT :limit
	`
)
