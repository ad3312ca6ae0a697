// Package assemble groups normalized documents into Compilations, one per
// output file, according to the job's granularity.
package assemble

import (
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/postpress/core"
	"github.com/gaurav-prasanna/postpress/core/output"
)

// Assemble builds the Compilations for one output format. docs are in
// resolved order and ordinals holds each document's 1-based position in
// that order. Each call returns fresh Compilations.
func Assemble(docs []*core.NormalizedDocument, ordinals []int, pub core.PublicationRef, cfg core.ExportConfiguration) []*core.Compilation {
	if len(docs) == 0 {
		return nil
	}
	if len(ordinals) != len(docs) {
		ordinals = make([]int, len(docs))
		for i := range ordinals {
			ordinals[i] = i + 1
		}
	}

	fields := cfg.Fields()
	pubName := output.SanitizeName(publicationTitle(pub))

	if cfg.Granularity == core.GranularityCombined {
		return []*core.Compilation{{
			Title:     publicationTitle(pub),
			Author:    publicationAuthor(pub),
			Documents: append([]*core.NormalizedDocument(nil), docs...),
			Ordinals:  append([]int(nil), ordinals...),
			Fields:    fields,
			TitlePage: true,
			FileStem:  pubName + " - combined",
			Combined:  true,
		}}
	}

	used := map[string]bool{}
	comps := make([]*core.Compilation, 0, len(docs))
	for i, doc := range docs {
		author := strings.TrimSpace(doc.Author)
		if author == "" {
			author = publicationAuthor(pub)
		}
		comps = append(comps, &core.Compilation{
			Title:     doc.Title,
			Author:    author,
			Documents: []*core.NormalizedDocument{doc},
			Ordinals:  []int{ordinals[i]},
			Fields:    fields,
			FileStem:  uniqueStem(pubName+" - "+output.SanitizeName(doc.Title), ordinals[i], used),
		})
	}
	return comps
}

// uniqueStem appends the post ordinal when a stem is already taken. Stems
// are compared case-insensitively for case-insensitive filesystems.
func uniqueStem(stem string, ordinal int, used map[string]bool) string {
	candidate := stem
	for n := 0; used[strings.ToLower(candidate)]; n++ {
		candidate = stem + " (" + strconv.Itoa(ordinal) + ")"
		if n > 0 {
			candidate += "-" + strconv.Itoa(n)
		}
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func publicationTitle(pub core.PublicationRef) string {
	if t := strings.TrimSpace(pub.Title); t != "" {
		return t
	}
	return "Untitled publication"
}

func publicationAuthor(pub core.PublicationRef) string {
	if a := strings.TrimSpace(pub.Author); a != "" {
		return a
	}
	return "Unknown author"
}
