package proto

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"bgscan/internal/domain/analysis"
)

// AnalysisToStruct converts an analysis to its JSON-shaped protobuf form.
func AnalysisToStruct(a analysis.PositionAnalysis) (*structpb.Struct, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err = json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func StructToAnalysis(s *structpb.Struct) (analysis.PositionAnalysis, error) {
	if s == nil {
		return analysis.PositionAnalysis{}, fmt.Errorf("empty analysis struct")
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return analysis.PositionAnalysis{}, err
	}
	var a analysis.PositionAnalysis
	if err = json.Unmarshal(raw, &a); err != nil {
		return analysis.PositionAnalysis{}, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return a, nil
}
