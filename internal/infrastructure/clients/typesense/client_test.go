package typesense

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlantsSchema(t *testing.T) {
	schema := PlantsSchema()

	assert.Equal(t, PlantsCollection, schema.Name)
	assert.Equal(t, "created_at", *schema.DefaultSortingField)

	fields := map[string]string{}
	for _, f := range schema.Fields {
		fields[f.Name] = f.Type
	}
	assert.Equal(t, "string", fields["user_id"])
	assert.Equal(t, "string", fields["name"])
	assert.Equal(t, "string[]", fields["common_names"])
	assert.Equal(t, "int64", fields["created_at"])
}
