package conversationRepository

const (
	queryCreateSubmission = `
		INSERT INTO form_submissions (
			id,
			session_id,
			user_id,
			form_url,
			data,
			fields_collected,
			created_at
		) VALUES (
			:id,
			:session_id,
			:user_id,
			:form_url,
			:data,
			:fields_collected,
			:created_at
		)
	`

	queryCleanupOldSubmissions = `
		DELETE FROM form_submissions
		WHERE created_at < :cutoff_time
	`
)
