package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jamolkhon5/intake/internal/ai/intake/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  models.Intent
	}{
		{name: "plain label", reply: "need_help", want: models.IntentNeedHelp},
		{name: "quoted with punctuation", reply: ` "Uncertainty". `, want: models.IntentUncertainty},
		{name: "label then prose", reply: "question_back - le client demande le prix", want: models.IntentQuestionBack},
		{name: "garbage", reply: "banana", want: models.IntentCompleteAnswer},
		{name: "empty reply", reply: "", want: models.IntentCompleteAnswer},
		{name: "port error", err: errors.New("timeout"), want: models.IntentCompleteAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ia := NewIntentAnalyzer(&stubLLM{classify: tt.reply, err: tt.err}, 0, nil)
			assert.Equal(t, tt.want, ia.Classify(context.Background(), "je ne sais pas", ClassifyContext{}))
		})
	}
}

func TestClassifyWithoutPortOrInput(t *testing.T) {
	assert.Equal(t, models.IntentCompleteAnswer,
		NewIntentAnalyzer(nil, 0, nil).Classify(context.Background(), "aidez-moi", ClassifyContext{}))

	stub := &stubLLM{classify: "need_help"}
	got := NewIntentAnalyzer(stub, 0, nil).Classify(context.Background(), "   ", ClassifyContext{})
	assert.Equal(t, models.IntentCompleteAnswer, got)
	assert.Zero(t, stub.calls["classify"])
}
