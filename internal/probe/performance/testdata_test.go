package performance

// sampleReport is a trimmed Lighthouse report with the scored audits,
// two opportunities and one non-opportunity table.
const sampleReport = `{
  "requestedUrl": "https://example.com/",
  "finalUrl": "https://example.com/",
  "audits": {
    "first-contentful-paint": {"id": "first-contentful-paint", "numericValue": 1800},
    "largest-contentful-paint": {"id": "largest-contentful-paint", "numericValue": 2500},
    "total-blocking-time": {"id": "total-blocking-time", "numericValue": 150},
    "cumulative-layout-shift": {"id": "cumulative-layout-shift", "numericValue": 0.02},
    "speed-index": {"id": "speed-index", "numericValue": 3000},
    "render-blocking-resources": {
      "id": "render-blocking-resources",
      "title": "Eliminate render-blocking resources",
      "description": "Resources are blocking the first paint. [Learn more](https://developer.chrome.com/docs/lighthouse/performance/render-blocking-resources/).",
      "displayValue": "Potential savings of 320 ms",
      "guidanceLevel": 2,
      "metricSavings": {"LCP": 300, "FCP": 320},
      "details": {
        "type": "opportunity",
        "overallSavingsMs": 320,
        "headings": [{"key": "url", "valueType": "url", "label": "URL"}],
        "items": [{"url": "https://example.com/app.css", "wastedMs": 320}]
      }
    },
    "uses-optimized-images": {
      "id": "uses-optimized-images",
      "title": "Efficiently encode images",
      "description": "Optimized images load faster.",
      "guidanceLevel": 1,
      "details": {
        "type": "opportunity",
        "overallSavingsBytes": 2048,
        "headings": [{"key": "url", "text": "URL"}],
        "items": []
      }
    },
    "network-requests": {
      "id": "network-requests",
      "details": {"type": "table", "items": []}
    }
  }
}`
