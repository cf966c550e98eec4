// Package rag composes answers from retrieved chunks and a language model.
package rag

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// Template variable names.
const (
	VarContext  = "context"
	VarQuestion = "question"
)

// DefaultTemplate is the question-answering prompt. Its layout, including
// the trailing spaces and indentation, is sent to the model as is.
const DefaultTemplate = "Use the following pieces of context to answer the question at the end. \n" +
	"        If you don't know the answer, just say that you don't know, don't try to make up an answer. \n" +
	"        Use three sentences maximum and keep the answer as concise as possible. \n" +
	"        Always say \"thanks for asking!\" at the end of the answer. \n" +
	"        {context}\n" +
	"        Question: {question}\n" +
	"        Helpful Answer:"

// PromptTemplate fills the context and question slots of a template.
type PromptTemplate struct {
	tmpl prompts.PromptTemplate
}

// NewPromptTemplate parses template as an f-string with the context and
// question slots.
func NewPromptTemplate(template string) PromptTemplate {
	return PromptTemplate{tmpl: prompts.PromptTemplate{
		Template:       template,
		InputVariables: []string{VarContext, VarQuestion},
		TemplateFormat: prompts.TemplateFormatFString,
	}}
}

// DefaultPrompt returns the template built from DefaultTemplate.
func DefaultPrompt() PromptTemplate {
	return NewPromptTemplate(DefaultTemplate)
}

// Format renders the prompt for one question.
func (p PromptTemplate) Format(context, question string) (string, error) {
	out, err := p.tmpl.Format(map[string]any{
		VarContext:  context,
		VarQuestion: question,
	})
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	return out, nil
}
