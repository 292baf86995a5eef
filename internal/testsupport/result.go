package testsupport

// TranscribeResult is a small recognition result with two speakers. Parsed
// with speaker labels it yields two segments; without, one.
const TranscribeResult = `{
  "jobName": "transcriptor_test",
  "status": "COMPLETED",
  "results": {
    "language_code": "en-US",
    "transcripts": [{"transcript": "Hello there. Hi."}],
    "items": [
      {"start_time": "0.0", "end_time": "0.5", "type": "pronunciation",
       "alternatives": [{"confidence": "0.9", "content": "Hello"}], "speaker_label": "spk_0"},
      {"start_time": "0.6", "end_time": "1.0", "type": "pronunciation",
       "alternatives": [{"confidence": "0.8", "content": "there"}], "speaker_label": "spk_0"},
      {"type": "punctuation", "alternatives": [{"confidence": "0.0", "content": "."}]},
      {"start_time": "1.5", "end_time": "2.0", "type": "pronunciation",
       "alternatives": [{"confidence": "0.95", "content": "Hi"}], "speaker_label": "spk_1"},
      {"type": "punctuation", "alternatives": [{"confidence": "0.0", "content": "."}]}
    ]
  }
}`
