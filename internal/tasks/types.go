package tasks

type CreateTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Priority    *int   `json:"priority"    validate:"omitnil,oneof=1 2 3"`
	Tags        string `json:"tags"        validate:"max=500"`
}

// UpdateTaskRequest is a partial update: nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title"       validate:"omitnil,required,max=200"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
	Priority    *int    `json:"priority"    validate:"omitnil,oneof=1 2 3"`
	Tags        *string `json:"tags"        validate:"omitnil,max=500"`
	Status      *string `json:"status"      validate:"omitnil,oneof=pending completed"`
}

// ReorderRequest lists task ids in their new display order. Ids may be
// JSON numbers or numeric strings.
type ReorderRequest struct {
	TaskIDs []any `json:"task_ids"`
}

type ReorderResponse struct {
	Success bool `json:"success"`
	Updated int  `json:"updated"`
}
