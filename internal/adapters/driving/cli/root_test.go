package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docbrief/internal/logger"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "docbrief", rootCmd.Use)
}

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	commands := rootCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "ingest")
	assert.Contains(t, commandNames, "search")
	assert.Contains(t, commandNames, "context")
	assert.Contains(t, commandNames, "watch")
	assert.Contains(t, commandNames, "mcp")
	assert.Contains(t, commandNames, "version")
}

func TestRootCmd_VerboseFlagEnablesLogger(t *testing.T) {
	defer func() {
		verboseFlag = false
		logger.SetVerbose(false)
	}()

	rootCmd.SetArgs([]string{"version", "--verbose"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestSetServices(t *testing.T) {
	oldContext := contextService
	oldIngest := ingestService
	defer func() {
		contextService = oldContext
		ingestService = oldIngest
	}()

	mockCtx := &mockContextService{}
	mockIng := &mockIngestService{}
	SetServices(Services{Context: mockCtx, Ingest: mockIng})

	assert.Same(t, mockCtx, contextService)
	assert.Same(t, mockIng, ingestService)
}
