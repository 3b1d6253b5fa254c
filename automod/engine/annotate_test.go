package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnotateDeferral(t *testing.T) {
	assert := assert.New(t)

	// reason lands inside the existing request template
	out, changed := AnnotateDeferral("{{delete|inactive}}\nmy page", "someone other than the author requested deletion")
	assert.True(changed)
	assert.Contains(out, "{{clarify|someone other than the author requested deletion}}")
	assert.Contains(out, "{{Delete/CannotAutoDelete}}")
	assert.Contains(out, "{{delete|inactive {{clarify|")

	// no request template: one is added up front
	out, changed = AnnotateDeferral("just text", "unrecognized deletion reason")
	assert.True(changed)
	assert.Contains(out, "{{delete|{{clarify|unrecognized deletion reason}}")

	// annotating twice changes nothing
	again, changed := AnnotateDeferral(out, "unrecognized deletion reason")
	assert.False(changed)
	assert.Equal(out, again)
}

func TestAlreadyAnnotated(t *testing.T) {
	assert := assert.New(t)

	assert.False(AlreadyAnnotated("{{delete|inactive}}"))
	assert.True(AlreadyAnnotated("{{delete|inactive {{Delete/CannotAutoDelete}}}}"))
	assert.True(AlreadyAnnotated("{{delete|inactive {{clarify|why}}}}"))
	assert.True(AlreadyAnnotated("{{Clarify|upper case template}}"))
}
